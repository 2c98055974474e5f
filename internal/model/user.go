package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Handlers define separate response types with JSON tags; these
// structs are used by the repository layer.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address (stored lowercase).
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// Elevated role names.  A row in user_roles grants the role; a user may
// hold both.  Absence of any row means "ordinary user".
const (
    RoleAdmin   = "admin"
    RoleSupport = "support"
)

// UserRole maps a user to one elevated role in the `user_roles` table.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – user holding the role.
//  Role      – role name (admin or support).
//  CreatedAt – timestamp of assignment.
type UserRole struct {
    ID        uint64    // user_roles.id
    UserID    uint64    // user_roles.user_id
    Role      string    // user_roles.role
    CreatedAt time.Time // user_roles.created_at
}
