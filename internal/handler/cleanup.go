package handler

import (
    "crypto/subtle"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/venuebook/venue-booking-api/internal/booking"
)

// CleanupHandler serves POST /v1/internal/cleanup, the endpoint an external
// scheduler hits to purge bookings older than the retention window.  It is
// guarded by a shared secret in the X-Cron-Key header rather than a user
// token.
type CleanupHandler struct {
    Svc        *booking.Service
    CronSecret string
}

func NewCleanupHandler(svc *booking.Service, cronSecret string) *CleanupHandler {
    return &CleanupHandler{Svc: svc, CronSecret: cronSecret}
}

func (h *CleanupHandler) Run(c echo.Context) error {
    key := c.Request().Header.Get("X-Cron-Key")
    if h.CronSecret == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.CronSecret)) != 1 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid cron key"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    deleted, err := h.Svc.ExpireSweep(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cleanup failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"deleted": deleted})
}
