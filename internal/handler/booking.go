package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/venuebook/venue-booking-api/internal/booking"
    "github.com/venuebook/venue-booking-api/internal/clock"
    "github.com/venuebook/venue-booking-api/internal/middleware"
    "github.com/venuebook/venue-booking-api/internal/model"
    "github.com/venuebook/venue-booking-api/internal/repository"
    "github.com/venuebook/venue-booking-api/internal/validation"
)

// BookingHandler exposes the booking lifecycle over HTTP.  All policy
// lives in the service; the handler binds requests, maps errors to status
// codes and renders bookings with their display status.
type BookingHandler struct {
    Svc   *booking.Service
    Clock clock.Clock
}

func NewBookingHandler(svc *booking.Service, clk clock.Clock) *BookingHandler {
    return &BookingHandler{Svc: svc, Clock: clk}
}

// ----- DTOs -----

type createBookingReq struct {
    Type model.BookingType `json:"booking_type"`
    Data model.Fields      `json:"booking_data"`
}

type editBookingReq struct {
    Data model.Fields `json:"booking_data"`
}

type statusReq struct {
    Status model.BookingStatus `json:"status"`
}

type emailReq struct {
    Email string `json:"email"`
}

// render returns a booking with its derived display status.  A confirmed
// booking whose instant has passed shows as expired; the stored row is
// never touched.
func (h *BookingHandler) render(b model.Booking) model.Booking {
    b.Status = b.DisplayStatus(h.Clock.Now())
    return b
}

// writeServiceError maps service errors to the HTTP surface.
func writeServiceError(c echo.Context, err error) error {
    var verr *validation.ValidationError
    switch {
    case errors.As(err, &verr):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": verr.Errors})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
    case errors.Is(err, booking.ErrNotEditable):
        return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not editable"})
    case errors.Is(err, booking.ErrInvalidStatus):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

func bookingID(c echo.Context) (uint64, error) {
    return strconv.ParseUint(c.Param("id"), 10, 64)
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), 10*time.Second)
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
    var req createBookingReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    res, err := h.Svc.Create(ctx, middleware.UserID(c), req.Type, req.Data)
    if err != nil {
        return writeServiceError(c, err)
    }

    resp := echo.Map{"booking": h.render(*res.Booking)}
    if !res.Queued {
        // The booking stands; only the confirmation email may be delayed.
        resp["warning"] = "confirmation email could not be queued"
    }
    return c.JSON(http.StatusCreated, resp)
}

// List handles GET /v1/bookings: the caller's own bookings, newest first.
func (h *BookingHandler) List(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    items, err := h.Svc.ListForOwner(ctx, middleware.UserID(c))
    if err != nil {
        return writeServiceError(c, err)
    }
    out := make([]model.Booking, 0, len(items))
    for _, b := range items {
        out = append(out, h.render(b))
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
    id, err := bookingID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    b, err := h.Svc.Get(ctx, middleware.UserID(c), id)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": h.render(*b)})
}

// Edit handles PUT /v1/bookings/:id.  The body carries only the fields to
// change; they are merged into the stored payload and the result
// re-validated as a whole.
func (h *BookingHandler) Edit(c echo.Context) error {
    id, err := bookingID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var req editBookingReq
    if err := c.Bind(&req); err != nil || len(req.Data) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_data required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    b, err := h.Svc.Edit(ctx, middleware.UserID(c), id, req.Data)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": h.render(*b)})
}

// UpdateStatus handles PATCH /v1/bookings/:id/status.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
    id, err := bookingID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var req statusReq
    if err := c.Bind(&req); err != nil || req.Status == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    b, err := h.Svc.UpdateStatus(ctx, middleware.UserID(c), id, req.Status)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": h.render(*b)})
}

// SendEmail handles POST /v1/bookings/:id/email: re-send the confirmation
// for an existing booking.  A refused send is a 403; a delivery failure
// still returns 200 with sent=false since the booking itself stands.
func (h *BookingHandler) SendEmail(c echo.Context) error {
    id, err := bookingID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var req emailReq
    if err := c.Bind(&req); err != nil || req.Email == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    err = h.Svc.SendConfirmation(ctx, middleware.UserID(c), middleware.UserEmail(c), req.Email, id)
    if err != nil {
        var de *booking.DeliveryError
        if errors.As(err, &de) {
            return c.JSON(http.StatusOK, echo.Map{"sent": false, "warning": "email delivery failed"})
        }
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"sent": true})
}
