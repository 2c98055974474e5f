package router // route registration for the booking API

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/venuebook/venue-booking-api/internal/config"
    "github.com/venuebook/venue-booking-api/internal/handler"
    "github.com/venuebook/venue-booking-api/internal/middleware"
    "github.com/venuebook/venue-booking-api/internal/repository"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.  Operations
// without an existing session (register, login, refresh, logout) live
// under /v1/auth; /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Refresh rotates the refresh token along with the access token.
    g.POST("/refresh", a.Refresh)
    // Logout accepts either a bearer token (revoke all sessions) or a
    // refresh_token body (revoke one session), so it needs no middleware.
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
}

// RegisterCatalog registers the read-only catalog endpoint.  When a Redis
// client is available the response is served through the cache middleware;
// the catalog is public so guests can build booking forms before signing
// in.
func RegisterCatalog(e *echo.Echo, rdb *redis.Client) {
    cacheCfg := config.LoadCacheConfig()
    e.GET("/v1/catalog", handler.Catalog, middleware.NewRedisCache(cacheCfg, rdb))
}

// RegisterBookings wires the booking lifecycle endpoints.  Everything
// requires a valid access token; the support surface additionally requires
// an elevated role resolved per request against the user_roles table.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, s *handler.SupportHandler, roles *repository.RoleRepo, jwtSecret string) {
    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))

    auth.POST("/bookings", b.Create)
    auth.GET("/bookings", b.List)
    auth.GET("/bookings/:id", b.Get)
    auth.PUT("/bookings/:id", b.Edit)
    auth.PATCH("/bookings/:id/status", b.UpdateStatus)
    auth.POST("/bookings/:id/email", b.SendEmail)

    support := auth.Group("/support")
    support.Use(middleware.RequireElevated(roles))
    support.GET("/bookings/:reference", s.Search)
    support.PUT("/bookings/:reference", s.Edit)
    support.PATCH("/bookings/:reference/status", s.UpdateStatus)
}

// RegisterInternal wires operational endpoints that are guarded by a
// shared secret header instead of a user token.
func RegisterInternal(e *echo.Echo, cl *handler.CleanupHandler) {
    e.POST("/v1/internal/cleanup", cl.Run)
}
