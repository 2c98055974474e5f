package middleware

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// ElevationChecker reports whether a user holds an elevated (admin or
// support) role.  Satisfied by repository.RoleRepo.
type ElevationChecker interface {
    IsElevated(ctx context.Context, userID uint64) (bool, error)
}

// RequireElevated returns a middleware that only admits admin or support
// users.  The role is looked up in the database on every request rather
// than trusted from the token, so revoking a role takes effect on the
// next call.  It must run after JWTAuth.
func RequireElevated(roles ElevationChecker) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            uid := UserID(c)
            if uid == 0 {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
            }

            ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
            defer cancel()

            elevated, err := roles.IsElevated(ctx, uid)
            if err != nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not verify role"})
            }
            if !elevated {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
