package repository

import (
    "context"
    "database/sql"
)

// RoleRepo reads the user_roles mapping.  A user with no row is an
// ordinary user; a row with role admin or support grants elevated access.
// Lookups are intentionally per-request with no cache so role revocation
// takes effect on the next call.
type RoleRepo struct{ db *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{db: db} }

// Roles returns every role name assigned to userID.  An empty slice means
// the user holds no elevated role.
func (r *RoleRepo) Roles(ctx context.Context, userID uint64) ([]string, error) {
    rows, err := r.db.QueryContext(ctx,
        "SELECT role FROM user_roles WHERE user_id = ?", userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]string, 0, 2)
    for rows.Next() {
        var role string
        if err := rows.Scan(&role); err != nil {
            return nil, err
        }
        out = append(out, role)
    }
    return out, rows.Err()
}

// IsElevated reports whether userID holds the admin or support role.
func (r *RoleRepo) IsElevated(ctx context.Context, userID uint64) (bool, error) {
    var one int
    err := r.db.QueryRowContext(ctx,
        "SELECT 1 FROM user_roles WHERE user_id = ? AND role IN ('admin','support') LIMIT 1",
        userID).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// Grant assigns a role to a user.  Inserting an existing pair is a no-op
// thanks to the unique index.
func (r *RoleRepo) Grant(ctx context.Context, userID uint64, role string) error {
    _, err := r.db.ExecContext(ctx,
        "INSERT IGNORE INTO user_roles (user_id, role) VALUES (?, ?)", userID, role)
    return err
}
