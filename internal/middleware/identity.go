package middleware

// identity.go holds the context accessors shared by middleware and
// handlers.  JWTAuth stores the authenticated identity under "user_id"
// and "email"; everything downstream reads it through these helpers so
// the context keys stay in one place.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's ID, or 0 when the request is
// unauthenticated.
func UserID(c echo.Context) uint64 {
    if v, ok := c.Get("user_id").(uint64); ok {
        return v
    }
    return 0
}

// UserEmail returns the email claim of the authenticated user, or "".
func UserEmail(c echo.Context) string {
    if v, ok := c.Get("email").(string); ok {
        return v
    }
    return ""
}

// rateIdentity renders the caller's identity for rate-limit keys.
// Unauthenticated requests share the "guest" bucket per IP.
func rateIdentity(c echo.Context) string {
    if id := UserID(c); id != 0 {
        return strconv.FormatUint(id, 10)
    }
    return "guest"
}
