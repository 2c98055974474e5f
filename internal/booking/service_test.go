package booking

import (
    "context"
    "encoding/json"
    "errors"
    "reflect"
    "regexp"
    "strings"
    "testing"
    "time"

    "github.com/venuebook/venue-booking-api/internal/clock"
    "github.com/venuebook/venue-booking-api/internal/model"
    "github.com/venuebook/venue-booking-api/internal/queue"
    "github.com/venuebook/venue-booking-api/internal/repository"
    "github.com/venuebook/venue-booking-api/internal/validation"
)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

// fakeStore is an in-memory Store with controllable duplicate-reference
// failures for exercising the retry loop.
type fakeStore struct {
    nextID      uint64
    bookings    map[uint64]*model.Booking
    refs        map[string]uint64
    failCreates int
}

func newFakeStore() *fakeStore {
    return &fakeStore{bookings: map[uint64]*model.Booking{}, refs: map[string]uint64{}}
}

func (s *fakeStore) Create(_ context.Context, b *model.Booking) error {
    if s.failCreates > 0 {
        s.failCreates--
        return repository.ErrDuplicateReference
    }
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

func (s *fakeStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
    b, ok := s.bookings[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    cp := *b
    return &cp, nil
}

func (s *fakeStore) GetByReference(_ context.Context, ref string) (*model.Booking, error) {
    id, ok := s.refs[ref]
    if !ok {
        return nil, repository.ErrNotFound
    }
    return s.GetByID(context.Background(), id)
}

func (s *fakeStore) ListByOwner(_ context.Context, ownerID uint64) ([]model.Booking, error) {
    out := []model.Booking{}
    for _, b := range s.bookings {
        if b.OwnerID == ownerID {
            out = append(out, *b)
        }
    }
    return out, nil
}

func (s *fakeStore) UpdateData(_ context.Context, id uint64, data model.Fields, bookingAt time.Time, qr string, updatedAt time.Time) error {
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrNotFound
    }
    b.Data = data
    b.BookingAt = bookingAt
    b.QRCodeData = qr
    b.UpdatedAt = updatedAt
    return nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id uint64, status model.BookingStatus, updatedAt time.Time) error {
    b, ok := s.bookings[id]
    if !ok {
        return repository.ErrNotFound
    }
    b.Status = status
    b.UpdatedAt = updatedAt
    return nil
}

func (s *fakeStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
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

type fakeRoles struct{ elevated map[uint64]bool }

func (r *fakeRoles) IsElevated(_ context.Context, userID uint64) (bool, error) {
    return r.elevated[userID], nil
}

type fakePublisher struct {
    events []queue.BookingCreatedEvent
    err    error
}

func (p *fakePublisher) publish(_ context.Context, ev queue.BookingCreatedEvent) error {
    if p.err != nil {
        return p.err
    }
    p.events = append(p.events, ev)
    return nil
}

type fakeSender struct {
    to, subject, html string
    calls             int
    err               error
}

func (s *fakeSender) Send(_ context.Context, to, subject, html string) error {
    s.calls++
    if s.err != nil {
        return s.err
    }
    s.to, s.subject, s.html = to, subject, html
    return nil
}

func newTestService(store *fakeStore, roles *fakeRoles, pub *fakePublisher, snd *fakeSender) *Service {
    var p Publisher
    if pub != nil {
        p = pub.publish
    }
    var sender Sender
    if snd != nil {
        sender = snd
    }
    return NewService(store, roles, validation.New(validation.DefaultLimits()), clock.NewFixed(testNow), p, sender)
}

func movieRaw() model.Fields {
    return model.Fields{
        "name": "Jane Doe", "email": "jane@x.com", "phone": "9876543210",
        "date": "2026-03-11", "time": "18:00",
        "movie": "action", "seats": float64(2), "screen": "2",
    }
}

func qrData(t *testing.T, qr string) model.QRPayload {
    t.Helper()
    var p model.QRPayload
    if err := json.Unmarshal([]byte(qr), &p); err != nil {
        t.Fatalf("qr payload not valid JSON: %v", err)
    }
    return p
}

func TestService_Create(t *testing.T) {
    t.Parallel()

    t.Run("valid movie booking", func(t *testing.T) {
        t.Parallel()
        store := newFakeStore()
        pub := &fakePublisher{}
        svc := newTestService(store, &fakeRoles{}, pub, nil)

        res, err := svc.Create(context.Background(), 7, model.BookingTypeMovie, movieRaw())
        if err != nil {
            t.Fatalf("expected success, got %v", err)
        }
        b := res.Booking
        if b.Status != model.StatusConfirmed {
            t.Fatalf("status = %s, want confirmed", b.Status)
        }
        if seats, ok := b.Data["seats"].(int); !ok || seats != 2 {
            t.Fatalf("seats = %v (%T), want int 2", b.Data["seats"], b.Data["seats"])
        }
        if b.OwnerID != 7 {
            t.Fatalf("owner = %d, want 7", b.OwnerID)
        }
        if !regexp.MustCompile(`^[A-Z0-9]{8}$`).MatchString(b.Reference) {
            t.Fatalf("reference %q has wrong format", b.Reference)
        }
        want := time.Date(2026, 3, 11, 18, 0, 0, 0, time.UTC)
        if !b.BookingAt.Equal(want) {
            t.Fatalf("bookingAt = %v, want %v", b.BookingAt, want)
        }

        p := qrData(t, b.QRCodeData)
        if p.Type != model.BookingTypeMovie || p.OwnerID != 7 {
            t.Fatalf("qr payload mismatch: %+v", p)
        }

        if !res.Queued || len(pub.events) != 1 {
            t.Fatalf("expected one published event, queued=%v n=%d", res.Queued, len(pub.events))
        }
        if pub.events[0].Email != "jane@x.com" || pub.events[0].Reference != b.Reference {
            t.Fatalf("event mismatch: %+v", pub.events[0])
        }
    })

    t.Run("publish failure is soft", func(t *testing.T) {
        t.Parallel()
        store := newFakeStore()
        pub := &fakePublisher{err: errors.New("broker down")}
        svc := newTestService(store, &fakeRoles{}, pub, nil)

        res, err := svc.Create(context.Background(), 7, model.BookingTypeMovie, movieRaw())
        if err != nil {
            t.Fatalf("creation must survive a failed publish: %v", err)
        }
        if res.Queued {
            t.Fatal("expected Queued=false")
        }
        if len(store.bookings) != 1 {
            t.Fatal("booking not persisted")
        }
    })

    t.Run("validation error lists offending field", func(t *testing.T) {
        t.Parallel()
        svc := newTestService(newFakeStore(), &fakeRoles{}, nil, nil)

        raw := model.Fields{
            "name": "Jane Doe", "email": "jane@x.com", "phone": "9876543210",
            "date": "2026-03-11", "time": "18:00",
            "event": "concert", "tickets": float64(25), "category": "vip",
        }
        _, err := svc.Create(context.Background(), 7, model.BookingTypeEvent, raw)
        var verr *validation.ValidationError
        if !errors.As(err, &verr) || !verr.Has("tickets") {
            t.Fatalf("expected tickets validation error, got %v", err)
        }
    })

    t.Run("retries on duplicate reference", func(t *testing.T) {
        t.Parallel()
        store := newFakeStore()
        store.failCreates = 2
        svc := newTestService(store, &fakeRoles{}, nil, nil)

        res, err := svc.Create(context.Background(), 7, model.BookingTypeMovie, movieRaw())
        if err != nil {
            t.Fatalf("expected retry to succeed: %v", err)
        }
        if res.Booking.ID == 0 {
            t.Fatal("booking not persisted")
        }
    })
}

func TestService_Get(t *testing.T) {
    t.Parallel()
    store := newFakeStore()
    roles := &fakeRoles{elevated: map[uint64]bool{99: true}}
    svc := newTestService(store, roles, nil, nil)

    res, err := svc.Create(context.Background(), 7, model.BookingTypeMovie, movieRaw())
    if err != nil {
        t.Fatal(err)
    }
    id := res.Booking.ID

    if _, err := svc.Get(context.Background(), 7, id); err != nil {
        t.Fatalf("owner read failed: %v", err)
    }
    if _, err := svc.Get(context.Background(), 99, id); err != nil {
        t.Fatalf("support read failed: %v", err)
    }
    if _, err := svc.Get(context.Background(), 8, id); !errors.Is(err, repository.ErrForbidden) {
        t.Fatalf("stranger read: want ErrForbidden, got %v", err)
    }
    if _, err := svc.Get(context.Background(), 7, 404); !errors.Is(err, repository.ErrNotFound) {
        t.Fatalf("missing booking: want ErrNotFound, got %v", err)
    }
}

func TestService_Edit(t *testing.T) {
    t.Parallel()

    setup := func(t *testing.T) (*Service, *fakeStore, uint64) {
        t.Helper()
        store := newFakeStore()
        roles := &fakeRoles{elevated: map[uint64]bool{99: true}}
        svc := newTestService(store, roles, nil, nil)
        res, err := svc.Create(context.Background(), 7, model.BookingTypeMovie, movieRaw())
        if err != nil {
            t.Fatal(err)
        }
        return svc, store, res.Booking.ID
    }

    t.Run("stranger denied and record untouched", func(t *testing.T) {
        t.Parallel()
        svc, store, id := setup(t)
        before := *store.bookings[id]

        _, err := svc.Edit(context.Background(), 8, id, model.Fields{"seats": float64(9)})
        if !errors.Is(err, repository.ErrForbidden) {
            t.Fatalf("want ErrForbidden, got %v", err)
        }
        if !reflect.DeepEqual(store.bookings[id].Data, before.Data) {
            t.Fatal("record changed by denied edit")
        }
    })

    t.Run("merge keeps untouched fields and regenerates QR", func(t *testing.T) {
        t.Parallel()
        svc, store, id := setup(t)
        before := *store.bookings[id]

        got, err := svc.Edit(context.Background(), 7, id, model.Fields{"seats": float64(5)})
        if err != nil {
            t.Fatalf("owner edit failed: %v", err)
        }
        if got.Data["seats"].(int) != 5 {
            t.Fatalf("seats = %v, want 5", got.Data["seats"])
        }
        if got.Data["movie"] != "action" {
            t.Fatalf("merge lost movie field: %v", got.Data)
        }
        if got.Reference != before.Reference || !got.CreatedAt.Equal(before.CreatedAt) {
            t.Fatal("immutable fields changed by edit")
        }

        p := qrData(t, got.QRCodeData)
        want := map[string]any{}
        raw, _ := json.Marshal(got.Data)
        _ = json.Unmarshal(raw, &want)
        stored := map[string]any{}
        raw, _ = json.Marshal(p.Data)
        _ = json.Unmarshal(raw, &stored)
        if !reflect.DeepEqual(stored, want) {
            t.Fatalf("qr data %v does not equal booking data %v", stored, want)
        }
    })

    t.Run("support may edit others", func(t *testing.T) {
        t.Parallel()
        svc, _, id := setup(t)
        if _, err := svc.Edit(context.Background(), 99, id, model.Fields{"seats": float64(3)}); err != nil {
            t.Fatalf("support edit failed: %v", err)
        }
    })

    t.Run("invalid merge is rejected", func(t *testing.T) {
        t.Parallel()
        svc, _, id := setup(t)
        _, err := svc.Edit(context.Background(), 7, id, model.Fields{"seats": float64(11)})
        var verr *validation.ValidationError
        if !errors.As(err, &verr) || !verr.Has("seats") {
            t.Fatalf("expected seats validation error, got %v", err)
        }
    })

    t.Run("non-confirmed is read-only", func(t *testing.T) {
        t.Parallel()
        svc, store, id := setup(t)
        store.bookings[id].Status = model.StatusCancelled
        if _, err := svc.Edit(context.Background(), 7, id, model.Fields{"seats": float64(3)}); !errors.Is(err, ErrNotEditable) {
            t.Fatalf("want ErrNotEditable, got %v", err)
        }
    })
}

func TestService_Search(t *testing.T) {
    t.Parallel()
    store := newFakeStore()
    roles := &fakeRoles{elevated: map[uint64]bool{99: true}}
    svc := newTestService(store, roles, nil, nil)

    res, err := svc.Create(context.Background(), 7, model.BookingTypeMovie, movieRaw())
    if err != nil {
        t.Fatal(err)
    }
    ref := res.Booking.Reference

    if _, err := svc.Search(context.Background(), 7, ref); !errors.Is(err, repository.ErrForbidden) {
        t.Fatalf("ordinary user search: want ErrForbidden, got %v", err)
    }

    // Case-insensitive exact match.
    got, err := svc.Search(context.Background(), 99, "  "+strings.ToLower(ref)+" ")
    if err != nil {
        t.Fatalf("support search failed: %v", err)
    }
    if got.ID != res.Booking.ID {
        t.Fatalf("found wrong booking: %d", got.ID)
    }

    if _, err := svc.Search(context.Background(), 99, "NOPENOPE"); !errors.Is(err, repository.ErrNotFound) {
        t.Fatalf("unknown reference: want ErrNotFound, got %v", err)
    }
}

func TestService_UpdateStatus(t *testing.T) {
    t.Parallel()

    setup := func(t *testing.T) (*Service, *fakeStore, uint64) {
        t.Helper()
        store := newFakeStore()
        roles := &fakeRoles{elevated: map[uint64]bool{99: true}}
        svc := newTestService(store, roles, nil, nil)
        res, err := svc.Create(context.Background(), 7, model.BookingTypeMovie, movieRaw())
        if err != nil {
            t.Fatal(err)
        }
        return svc, store, res.Booking.ID
    }

    t.Run("owner may cancel", func(t *testing.T) {
        t.Parallel()
        svc, _, id := setup(t)
        got, err := svc.UpdateStatus(context.Background(), 7, id, model.StatusCancelled)
        if err != nil {
            t.Fatal(err)
        }
        if got.Status != model.StatusCancelled {
            t.Fatalf("status = %s", got.Status)
        }
    })

    t.Run("owner may not mark used", func(t *testing.T) {
        t.Parallel()
        svc, _, id := setup(t)
        if _, err := svc.UpdateStatus(context.Background(), 7, id, model.StatusUsed); !errors.Is(err, repository.ErrForbidden) {
            t.Fatalf("want ErrForbidden, got %v", err)
        }
    })

    t.Run("support may mark used", func(t *testing.T) {
        t.Parallel()
        svc, _, id := setup(t)
        if _, err := svc.UpdateStatus(context.Background(), 99, id, model.StatusUsed); err != nil {
            t.Fatal(err)
        }
    })

    t.Run("terminal states reject transitions", func(t *testing.T) {
        t.Parallel()
        svc, store, id := setup(t)
        store.bookings[id].Status = model.StatusUsed
        if _, err := svc.UpdateStatus(context.Background(), 99, id, model.StatusCancelled); !errors.Is(err, ErrNotEditable) {
            t.Fatalf("want ErrNotEditable, got %v", err)
        }
    })

    t.Run("confirmed is not a target", func(t *testing.T) {
        t.Parallel()
        svc, _, id := setup(t)
        if _, err := svc.UpdateStatus(context.Background(), 99, id, model.StatusConfirmed); !errors.Is(err, ErrInvalidStatus) {
            t.Fatalf("want ErrInvalidStatus, got %v", err)
        }
    })
}

func TestService_ExpireSweep(t *testing.T) {
    t.Parallel()
    store := newFakeStore()
    svc := newTestService(store, &fakeRoles{}, nil, nil)

    seed := func(id uint64, at time.Time, status model.BookingStatus) {
        store.bookings[id] = &model.Booking{ID: id, Reference: "REF" + string(rune('0'+id)), BookingAt: at, Status: status}
        store.refs[store.bookings[id].Reference] = id
    }
    seed(1, testNow.AddDate(0, 0, -31), model.StatusConfirmed)
    seed(2, testNow.AddDate(0, 0, -29), model.StatusConfirmed)
    seed(3, testNow.AddDate(0, 0, -40), model.StatusUsed) // status irrelevant

    n, err := svc.ExpireSweep(context.Background())
    if err != nil {
        t.Fatal(err)
    }
    if n != 2 {
        t.Fatalf("deleted %d, want 2", n)
    }
    if _, kept := store.bookings[2]; !kept {
        t.Fatal("booking 29 days old must be retained")
    }

    // Idempotent: same instant, nothing left to match.
    n, err = svc.ExpireSweep(context.Background())
    if err != nil || n != 0 {
        t.Fatalf("second sweep: n=%d err=%v", n, err)
    }
}

func TestService_SendConfirmation(t *testing.T) {
    t.Parallel()

    setup := func(t *testing.T, snd *fakeSender) (*Service, uint64) {
        t.Helper()
        store := newFakeStore()
        svc := newTestService(store, &fakeRoles{}, nil, snd)
        res, err := svc.Create(context.Background(), 7, model.BookingTypeMovie, movieRaw())
        if err != nil {
            t.Fatal(err)
        }
        return svc, res.Booking.ID
    }

    t.Run("sends when addresses line up", func(t *testing.T) {
        t.Parallel()
        snd := &fakeSender{}
        svc, id := setup(t, snd)
        if err := svc.SendConfirmation(context.Background(), 7, "jane@x.com", "jane@x.com", id); err != nil {
            t.Fatal(err)
        }
        if snd.calls != 1 || snd.to != "jane@x.com" {
            t.Fatalf("sender calls=%d to=%q", snd.calls, snd.to)
        }
    })

    t.Run("rejects address not matching booking", func(t *testing.T) {
        t.Parallel()
        snd := &fakeSender{}
        svc, id := setup(t, snd)
        err := svc.SendConfirmation(context.Background(), 7, "other@x.com", "other@x.com", id)
        if !errors.Is(err, repository.ErrForbidden) {
            t.Fatalf("want ErrForbidden, got %v", err)
        }
        if snd.calls != 0 {
            t.Fatal("sender must not be called on mismatch")
        }
    })

    t.Run("rejects caller whose token email differs", func(t *testing.T) {
        t.Parallel()
        snd := &fakeSender{}
        svc, id := setup(t, snd)
        err := svc.SendConfirmation(context.Background(), 42, "mallory@x.com", "jane@x.com", id)
        if !errors.Is(err, repository.ErrForbidden) {
            t.Fatalf("want ErrForbidden, got %v", err)
        }
    })

    t.Run("delivery failure is a DeliveryError", func(t *testing.T) {
        t.Parallel()
        snd := &fakeSender{err: errors.New("api down")}
        svc, id := setup(t, snd)
        err := svc.SendConfirmation(context.Background(), 7, "jane@x.com", "jane@x.com", id)
        var de *DeliveryError
        if !errors.As(err, &de) {
            t.Fatalf("want DeliveryError, got %v", err)
        }
    })
}
