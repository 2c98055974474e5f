package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/venuebook/venue-booking-api/internal/booking"
    "github.com/venuebook/venue-booking-api/internal/clock"
    "github.com/venuebook/venue-booking-api/internal/middleware"
)

// SupportHandler serves the support-desk surface: looking up any booking
// by its public reference and acting on it.  Routes are additionally
// guarded by RequireElevated; the service re-checks the role so the policy
// holds even if a route is wired without the middleware.
type SupportHandler struct {
    Svc   *booking.Service
    Clock clock.Clock
}

func NewSupportHandler(svc *booking.Service, clk clock.Clock) *SupportHandler {
    return &SupportHandler{Svc: svc, Clock: clk}
}

func refParam(c echo.Context) string {
    return strings.TrimSpace(c.Param("reference"))
}

// Search handles GET /v1/support/bookings/:reference.
func (h *SupportHandler) Search(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    b, err := h.Svc.Search(ctx, middleware.UserID(c), refParam(c))
    if err != nil {
        return writeServiceError(c, err)
    }
    b.Status = b.DisplayStatus(h.Clock.Now())
    return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// Edit handles PUT /v1/support/bookings/:reference.
func (h *SupportHandler) Edit(c echo.Context) error {
    var req editBookingReq
    if err := c.Bind(&req); err != nil || len(req.Data) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_data required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    actor := middleware.UserID(c)
    b, err := h.Svc.Search(ctx, actor, refParam(c))
    if err != nil {
        return writeServiceError(c, err)
    }
    b, err = h.Svc.Edit(ctx, actor, b.ID, req.Data)
    if err != nil {
        return writeServiceError(c, err)
    }
    b.Status = b.DisplayStatus(h.Clock.Now())
    return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// UpdateStatus handles PATCH /v1/support/bookings/:reference/status.
func (h *SupportHandler) UpdateStatus(c echo.Context) error {
    var req statusReq
    if err := c.Bind(&req); err != nil || req.Status == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    actor := middleware.UserID(c)
    b, err := h.Svc.Search(ctx, actor, refParam(c))
    if err != nil {
        return writeServiceError(c, err)
    }
    b, err = h.Svc.UpdateStatus(ctx, actor, b.ID, req.Status)
    if err != nil {
        return writeServiceError(c, err)
    }
    b.Status = b.DisplayStatus(h.Clock.Now())
    return c.JSON(http.StatusOK, echo.Map{"booking": b})
}
