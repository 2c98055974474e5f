package handler

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/venuebook/venue-booking-api/internal/booking"
    "github.com/venuebook/venue-booking-api/internal/clock"
    "github.com/venuebook/venue-booking-api/internal/model"
    "github.com/venuebook/venue-booking-api/internal/repository"
    "github.com/venuebook/venue-booking-api/internal/validation"
)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

// memStore is a minimal in-memory booking.Store for handler tests.
type memStore struct {
    nextID   uint64
    bookings map[uint64]*model.Booking
    refs     map[string]uint64
}

func newMemStore() *memStore {
    return &memStore{bookings: map[uint64]*model.Booking{}, refs: map[string]uint64{}}
}

func (s *memStore) Create(_ context.Context, b *model.Booking) error {
    if _, dup := s.refs[b.Reference]; dup {
        return repository.ErrDuplicateReference
    }
    s.nextID++
    b.ID = s.nextID
    cp := *b
    s.bookings[b.ID] = &cp
    s.refs[b.Reference] = b.ID
    return nil
}

func (s *memStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
    b, ok := s.bookings[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    cp := *b
    return &cp, nil
}

func (s *memStore) GetByReference(_ context.Context, ref string) (*model.Booking, error) {
    id, ok := s.refs[ref]
    if !ok {
        return nil, repository.ErrNotFound
    }
    return s.GetByID(context.Background(), id)
}

func (s *memStore) ListByOwner(_ context.Context, ownerID uint64) ([]model.Booking, error) {
    out := []model.Booking{}
    for _, b := range s.bookings {
        if b.OwnerID == ownerID {
            out = append(out, *b)
        }
    }
    return out, nil
}

func (s *memStore) UpdateData(_ context.Context, id uint64, data model.Fields, bookingAt time.Time, qr string, updatedAt time.Time) error {
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrNotFound
    }
    b.Data, b.BookingAt, b.QRCodeData, b.UpdatedAt = data, bookingAt, qr, updatedAt
    return nil
}

func (s *memStore) UpdateStatus(_ context.Context, id uint64, status model.BookingStatus, updatedAt time.Time) error {
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrNotFound
    }
    b.Status, b.UpdatedAt = status, updatedAt
    return nil
}

func (s *memStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
    var n int64
    for id, b := range s.bookings {
        if !b.BookingAt.After(cutoff) {
            delete(s.refs, b.Reference)
            delete(s.bookings, id)
            n++
        }
    }
    return n, nil
}

type memRoles struct{ elevated map[uint64]bool }

func (r *memRoles) IsElevated(_ context.Context, userID uint64) (bool, error) {
    return r.elevated[userID], nil
}

type memSender struct {
    calls int
    err   error
}

func (s *memSender) Send(_ context.Context, _, _, _ string) error {
    s.calls++
    return s.err
}

type env struct {
    e       *echo.Echo
    store   *memStore
    sender  *memSender
    svc     *booking.Service
    booking *BookingHandler
    support *SupportHandler
}

func newEnv(t *testing.T) *env {
    t.Helper()
    store := newMemStore()
    roles := &memRoles{elevated: map[uint64]bool{99: true}}
    sender := &memSender{}
    svc := booking.NewService(store, roles, validation.New(validation.DefaultLimits()), clock.NewFixed(testNow), nil, sender)
    clk := clock.NewFixed(testNow)
    return &env{
        e:       echo.New(),
        store:   store,
        sender:  sender,
        svc:     svc,
        booking: NewBookingHandler(svc, clk),
        support: NewSupportHandler(svc, clk),
    }
}

// ctx builds an echo context carrying an authenticated identity, the way
// JWTAuth leaves it.
func (v *env) ctx(method, target, body string, userID uint64, email string) (echo.Context, *httptest.ResponseRecorder) {
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, target, strings.NewReader(body))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    } else {
        req = httptest.NewRequest(method, target, nil)
    }
    rec := httptest.NewRecorder()
    c := v.e.NewContext(req, rec)
    c.Set("user_id", userID)
    c.Set("email", email)
    return c, rec
}

func (v *env) seedMovie(t *testing.T, ownerID uint64) *model.Booking {
    t.Helper()
    res, err := v.svc.Create(context.Background(), ownerID, model.BookingTypeMovie, model.Fields{
        "name": "Jane Doe", "email": "jane@x.com", "phone": "9876543210",
        "date": "2026-03-11", "time": "18:00",
        "movie": "action", "seats": float64(2), "screen": "2",
    })
    if err != nil {
        t.Fatal(err)
    }
    return res.Booking
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
    t.Helper()
    out := map[string]any{}
    if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
        t.Fatalf("invalid JSON response: %v", err)
    }
    return out
}

func TestBookingHandler_Create(t *testing.T) {
    t.Parallel()

    t.Run("valid booking returns 201", func(t *testing.T) {
        t.Parallel()
        v := newEnv(t)
        body := `{"booking_type":"movie","booking_data":{"name":"Jane Doe","email":"jane@x.com","phone":"9876543210","date":"2026-03-11","time":"18:00","movie":"action","seats":2,"screen":"2"}}`
        c, rec := v.ctx(http.MethodPost, "/v1/bookings", body, 7, "jane@x.com")
        if err := v.booking.Create(c); err != nil {
            t.Fatal(err)
        }
        if rec.Code != http.StatusCreated {
            t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
        }
        resp := decode(t, rec)
        b := resp["booking"].(map[string]any)
        if b["status"] != "confirmed" {
            t.Fatalf("status = %v", b["status"])
        }
        if ref := b["booking_reference"].(string); len(ref) != 8 {
            t.Fatalf("reference = %q", ref)
        }
    })

    t.Run("validation failure returns 422 with field errors", func(t *testing.T) {
        t.Parallel()
        v := newEnv(t)
        body := `{"booking_type":"movie","booking_data":{"name":"J","email":"nope","seats":0}}`
        c, rec := v.ctx(http.MethodPost, "/v1/bookings", body, 7, "jane@x.com")
        if err := v.booking.Create(c); err != nil {
            t.Fatal(err)
        }
        if rec.Code != http.StatusUnprocessableEntity {
            t.Fatalf("status = %d", rec.Code)
        }
        resp := decode(t, rec)
        if errs, ok := resp["errors"].([]any); !ok || len(errs) == 0 {
            t.Fatalf("expected field errors, got %v", resp)
        }
    })

    t.Run("malformed body returns 400", func(t *testing.T) {
        t.Parallel()
        v := newEnv(t)
        c, rec := v.ctx(http.MethodPost, "/v1/bookings", `{"booking_type":`, 7, "jane@x.com")
        if err := v.booking.Create(c); err != nil {
            t.Fatal(err)
        }
        if rec.Code != http.StatusBadRequest {
            t.Fatalf("status = %d", rec.Code)
        }
    })
}

func TestBookingHandler_Get(t *testing.T) {
    t.Parallel()

    t.Run("stranger gets 403", func(t *testing.T) {
        t.Parallel()
        v := newEnv(t)
        v.seedMovie(t, 7)
        c, rec := v.ctx(http.MethodGet, "/v1/bookings/1", "", 8, "other@x.com")
        c.SetParamNames("id")
        c.SetParamValues("1")
        if err := v.booking.Get(c); err != nil {
            t.Fatal(err)
        }
        if rec.Code != http.StatusForbidden {
            t.Fatalf("status = %d", rec.Code)
        }
    })

    t.Run("missing booking gets 404", func(t *testing.T) {
        t.Parallel()
        v := newEnv(t)
        c, rec := v.ctx(http.MethodGet, "/v1/bookings/42", "", 7, "jane@x.com")
        c.SetParamNames("id")
        c.SetParamValues("42")
        if err := v.booking.Get(c); err != nil {
            t.Fatal(err)
        }
        if rec.Code != http.StatusNotFound {
            t.Fatalf("status = %d", rec.Code)
        }
    })

    t.Run("past confirmed booking displays as expired", func(t *testing.T) {
        t.Parallel()
        v := newEnv(t)
        b := v.seedMovie(t, 7)
        v.store.bookings[b.ID].BookingAt = testNow.Add(-2 * time.Hour)
        c, rec := v.ctx(http.MethodGet, "/v1/bookings/1", "", 7, "jane@x.com")
        c.SetParamNames("id")
        c.SetParamValues("1")
        if err := v.booking.Get(c); err != nil {
            t.Fatal(err)
        }
        resp := decode(t, rec)
        if got := resp["booking"].(map[string]any)["status"]; got != "expired" {
            t.Fatalf("display status = %v, want expired", got)
        }
        // Stored status untouched.
        if v.store.bookings[b.ID].Status != model.StatusConfirmed {
            t.Fatal("stored status must stay confirmed")
        }
    })
}

func TestBookingHandler_Edit(t *testing.T) {
    t.Parallel()

    t.Run("cancelled booking returns 409", func(t *testing.T) {
        t.Parallel()
        v := newEnv(t)
        b := v.seedMovie(t, 7)
        v.store.bookings[b.ID].Status = model.StatusCancelled
        c, rec := v.ctx(http.MethodPut, "/v1/bookings/1", `{"booking_data":{"seats":3}}`, 7, "jane@x.com")
        c.SetParamNames("id")
        c.SetParamValues("1")
        if err := v.booking.Edit(c); err != nil {
            t.Fatal(err)
        }
        if rec.Code != http.StatusConflict {
            t.Fatalf("status = %d", rec.Code)
        }
    })

    t.Run("owner edit returns updated booking", func(t *testing.T) {
        t.Parallel()
        v := newEnv(t)
        v.seedMovie(t, 7)
        c, rec := v.ctx(http.MethodPut, "/v1/bookings/1", `{"booking_data":{"seats":5}}`, 7, "jane@x.com")
        c.SetParamNames("id")
        c.SetParamValues("1")
        if err := v.booking.Edit(c); err != nil {
            t.Fatal(err)
        }
        if rec.Code != http.StatusOK {
            t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
        }
        resp := decode(t, rec)
        data := resp["booking"].(map[string]any)["booking_data"].(map[string]any)
        if data["seats"].(float64) != 5 {
            t.Fatalf("seats = %v", data["seats"])
        }
    })
}

func TestBookingHandler_UpdateStatus(t *testing.T) {
    t.Parallel()
    v := newEnv(t)
    v.seedMovie(t, 7)

    c, rec := v.ctx(http.MethodPatch, "/v1/bookings/1/status", `{"status":"cancelled"}`, 7, "jane@x.com")
    c.SetParamNames("id")
    c.SetParamValues("1")
    if err := v.booking.UpdateStatus(c); err != nil {
        t.Fatal(err)
    }
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
    }
    resp := decode(t, rec)
    if got := resp["booking"].(map[string]any)["status"]; got != "cancelled" {
        t.Fatalf("status = %v", got)
    }
}

func TestBookingHandler_SendEmail(t *testing.T) {
    t.Parallel()

    t.Run("mismatched address returns 403", func(t *testing.T) {
        t.Parallel()
        v := newEnv(t)
        v.seedMovie(t, 7)
        c, rec := v.ctx(http.MethodPost, "/v1/bookings/1/email", `{"email":"other@x.com"}`, 7, "other@x.com")
        c.SetParamNames("id")
        c.SetParamValues("1")
        if err := v.booking.SendEmail(c); err != nil {
            t.Fatal(err)
        }
        if rec.Code != http.StatusForbidden {
            t.Fatalf("status = %d", rec.Code)
        }
        if v.sender.calls != 0 {
            t.Fatal("sender must not be called")
        }
    })

    t.Run("delivery failure is a 200 with sent=false", func(t *testing.T) {
        t.Parallel()
        v := newEnv(t)
        v.seedMovie(t, 7)
        v.sender.err = errors.New("api down")
        c, rec := v.ctx(http.MethodPost, "/v1/bookings/1/email", `{"email":"jane@x.com"}`, 7, "jane@x.com")
        c.SetParamNames("id")
        c.SetParamValues("1")
        if err := v.booking.SendEmail(c); err != nil {
            t.Fatal(err)
        }
        if rec.Code != http.StatusOK {
            t.Fatalf("status = %d", rec.Code)
        }
        resp := decode(t, rec)
        if resp["sent"] != false {
            t.Fatalf("sent = %v", resp["sent"])
        }
    })

    t.Run("successful send", func(t *testing.T) {
        t.Parallel()
        v := newEnv(t)
        v.seedMovie(t, 7)
        c, rec := v.ctx(http.MethodPost, "/v1/bookings/1/email", `{"email":"jane@x.com"}`, 7, "jane@x.com")
        c.SetParamNames("id")
        c.SetParamValues("1")
        if err := v.booking.SendEmail(c); err != nil {
            t.Fatal(err)
        }
        resp := decode(t, rec)
        if resp["sent"] != true || v.sender.calls != 1 {
            t.Fatalf("sent=%v calls=%d", resp["sent"], v.sender.calls)
        }
    })
}

func TestSupportHandler_Search(t *testing.T) {
    t.Parallel()
    v := newEnv(t)
    b := v.seedMovie(t, 7)

    // Support user finds the booking by lowercase reference.
    c, rec := v.ctx(http.MethodGet, "/v1/support/bookings/"+b.Reference, "", 99, "support@x.com")
    c.SetParamNames("reference")
    c.SetParamValues(strings.ToLower(b.Reference))
    if err := v.support.Search(c); err != nil {
        t.Fatal(err)
    }
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
    }

    // An ordinary user is refused even if they own the booking.
    c, rec = v.ctx(http.MethodGet, "/v1/support/bookings/"+b.Reference, "", 7, "jane@x.com")
    c.SetParamNames("reference")
    c.SetParamValues(b.Reference)
    if err := v.support.Search(c); err != nil {
        t.Fatal(err)
    }
    if rec.Code != http.StatusForbidden {
        t.Fatalf("status = %d", rec.Code)
    }
}

func TestCleanupHandler(t *testing.T) {
    t.Parallel()
    v := newEnv(t)
    b := v.seedMovie(t, 7)
    v.store.bookings[b.ID].BookingAt = testNow.AddDate(0, 0, -31)
    h := NewCleanupHandler(v.svc, "cron-secret")

    req := httptest.NewRequest(http.MethodPost, "/v1/internal/cleanup", nil)
    rec := httptest.NewRecorder()
    c := v.e.NewContext(req, rec)
    if err := h.Run(c); err != nil {
        t.Fatal(err)
    }
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("missing key: status = %d", rec.Code)
    }

    req = httptest.NewRequest(http.MethodPost, "/v1/internal/cleanup", nil)
    req.Header.Set("X-Cron-Key", "cron-secret")
    rec = httptest.NewRecorder()
    c = v.e.NewContext(req, rec)
    if err := h.Run(c); err != nil {
        t.Fatal(err)
    }
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d", rec.Code)
    }
    resp := decode(t, rec)
    if resp["deleted"].(float64) != 1 {
        t.Fatalf("deleted = %v", resp["deleted"])
    }
}

func TestCatalog(t *testing.T) {
    t.Parallel()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/catalog", nil)
    rec := httptest.NewRecorder()
    if err := Catalog(e.NewContext(req, rec)); err != nil {
        t.Fatal(err)
    }
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d", rec.Code)
    }
    resp := decode(t, rec)
    museums := resp["museums_by_state"].(map[string]any)
    if _, ok := museums["california"]; !ok {
        t.Fatal("catalog missing california museums")
    }
    if types := resp["booking_types"].([]any); len(types) != 5 {
        t.Fatalf("booking_types = %v", types)
    }
}
