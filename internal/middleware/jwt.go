package middleware // reusable HTTP middleware for the booking API

import (
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject and email claims into the request
// context.  The provided secret must match the one used when issuing
// tokens.  Protected handlers read the authenticated identity via
// middleware.UserID(c) and middleware.UserEmail(c).  Roles are not carried
// in the token; elevated access is resolved per request by RequireElevated.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header is "Bearer <jwt>".  Anything else is a 401.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Parse with HS256 and our secret.  The callback pins the
            // algorithm so a token signed any other way is rejected.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            uid := subjectID(claims)
            if uid == 0 {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
            }
            email, _ := claims["email"].(string)

            c.Set("user_id", uid)
            c.Set("email", email)
            return next(c)
        }
    }
}

// subjectID coerces the numeric sub claim.  JSON numbers decode as
// float64; tokens minted by other tooling may carry the ID as a string.
func subjectID(claims jwt.MapClaims) uint64 {
    switch v := claims["sub"].(type) {
    case float64:
        if v > 0 {
            return uint64(v)
        }
    case string:
        var n uint64
        for _, r := range v {
            if r < '0' || r > '9' {
                return 0
            }
            n = n*10 + uint64(r-'0')
        }
        return n
    }
    return 0
}
