// Package booking implements the record lifecycle and access policy:
// create, edit, read, owner listing, reference search, status transitions
// and the scheduled expiry sweep.  Storage, clocks, event publication and
// email delivery are injected so the rules stay testable.
package booking

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/venuebook/venue-booking-api/internal/clock"
    "github.com/venuebook/venue-booking-api/internal/mailer"
    "github.com/venuebook/venue-booking-api/internal/model"
    "github.com/venuebook/venue-booking-api/internal/queue"
    "github.com/venuebook/venue-booking-api/internal/repository"
    "github.com/venuebook/venue-booking-api/internal/utils"
    "github.com/venuebook/venue-booking-api/internal/validation"
)

// referenceAttempts bounds the regenerate-on-collision loop for booking
// references.  With 36^8 values a second collision in a row is effectively
// impossible; the bound only guards against a broken unique index.
const referenceAttempts = 5

// retentionDays is how long a booking outlives its instant before the
// cleanup sweep removes it, irrespective of status.
const retentionDays = 30

// ErrNotEditable is returned when an edit or status change targets a
// booking that is no longer in the confirmed state.  Handlers translate it
// into HTTP 409.
var ErrNotEditable = errors.New("booking is not editable")

// ErrInvalidStatus is returned for a status transition outside
// confirmed→used / confirmed→cancelled.
var ErrInvalidStatus = errors.New("invalid status transition")

// DeliveryError wraps an email delivery failure.  It is a soft outcome:
// the booking operation that triggered the send has already succeeded and
// must not be rolled back or failed because of it.
type DeliveryError struct {
    Err error
}

func (e *DeliveryError) Error() string { return "email delivery failed: " + e.Err.Error() }
func (e *DeliveryError) Unwrap() error { return e.Err }

// Store is the persistence surface the service needs.  *repository.BookingRepo
// implements it against MySQL.
type Store interface {
    Create(ctx context.Context, b *model.Booking) error
    GetByID(ctx context.Context, id uint64) (*model.Booking, error)
    GetByReference(ctx context.Context, reference string) (*model.Booking, error)
    ListByOwner(ctx context.Context, ownerID uint64) ([]model.Booking, error)
    UpdateData(ctx context.Context, id uint64, data model.Fields, bookingAt time.Time, qrCodeData string, updatedAt time.Time) error
    UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus, updatedAt time.Time) error
    DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RoleStore answers elevated-role lookups.  *repository.RoleRepo implements
// it; lookups happen per request with no caching.
type RoleStore interface {
    IsElevated(ctx context.Context, userID uint64) (bool, error)
}

// Publisher sends a booking.created event.  queue_publisher.PublishBookingCreated
// satisfies it in production.
type Publisher func(ctx context.Context, event queue.BookingCreatedEvent) error

// Sender delivers one email.  *mailer.Mailer satisfies it.
type Sender interface {
    Send(ctx context.Context, to, subject, html string) error
}

// Service wires the lifecycle rules to their collaborators.
type Service struct {
    store     Store
    roles     RoleStore
    validator *validation.Validator
    clock     clock.Clock
    publish   Publisher
    sender    Sender
}

// NewService constructs a Service.  publish and sender may be nil in tests
// that do not exercise notification paths.
func NewService(store Store, roles RoleStore, validator *validation.Validator, clk clock.Clock, publish Publisher, sender Sender) *Service {
    if store == nil || roles == nil || validator == nil || clk == nil {
        panic("nil dependency passed to booking.NewService")
    }
    return &Service{
        store:     store,
        roles:     roles,
        validator: validator,
        clock:     clk,
        publish:   publish,
        sender:    sender,
    }
}

// qrPayload serializes the QR artifact for the given state of a booking.
// It is rebuilt on every edit so the embedded data always equals the
// stored payload.
func qrPayload(t model.BookingType, data model.Fields, now time.Time, ownerID uint64) (string, error) {
    raw, err := json.Marshal(model.QRPayload{
        Type:      t,
        Data:      data,
        Timestamp: now.UTC().Format(time.RFC3339),
        OwnerID:   ownerID,
    })
    if err != nil {
        return "", err
    }
    return string(raw), nil
}

// CreateResult reports a successful creation plus whether the confirmation
// event reached the broker.  Queued=false is a soft warning only.
type CreateResult struct {
    Booking *model.Booking
    Queued  bool
}

// Create validates raw against the schema for t, persists a confirmed
// booking owned by ownerID and publishes a booking.created event
// best-effort.  The reference is regenerated and the insert retried when
// the storage layer reports a duplicate.
func (s *Service) Create(ctx context.Context, ownerID uint64, t model.BookingType, raw model.Fields) (CreateResult, error) {
    now := s.clock.Now()

    fields, verr := s.validator.Validate(t, raw, now)
    if verr != nil {
        return CreateResult{}, verr
    }

    bookingAt, err := validation.CombineDateTime(fields["date"].(string), fields["time"].(string), now.Location())
    if err != nil {
        return CreateResult{}, err
    }

    qr, err := qrPayload(t, fields, now, ownerID)
    if err != nil {
        return CreateResult{}, err
    }

    b := &model.Booking{
        OwnerID:    ownerID,
        Type:       t,
        Data:       fields,
        BookingAt:  bookingAt,
        QRCodeData: qr,
        Status:     model.StatusConfirmed,
        CreatedAt:  now,
        UpdatedAt:  now,
    }

    for attempt := 0; ; attempt++ {
        ref, err := utils.NewBookingReference()
        if err != nil {
            return CreateResult{}, err
        }
        b.Reference = ref
        err = s.store.Create(ctx, b)
        if err == nil {
            break
        }
        if errors.Is(err, repository.ErrDuplicateReference) && attempt < referenceAttempts-1 {
            continue
        }
        return CreateResult{}, err
    }

    queued := s.publishCreated(ctx, b)
    return CreateResult{Booking: b, Queued: queued}, nil
}

func (s *Service) publishCreated(ctx context.Context, b *model.Booking) bool {
    if s.publish == nil {
        return false
    }
    email, _ := b.Data["email"].(string)
    err := s.publish(ctx, queue.BookingCreatedEvent{
        BookingID:  b.ID,
        OwnerID:    b.OwnerID,
        Type:       b.Type,
        Reference:  b.Reference,
        Data:       b.Data,
        QRCodeData: b.QRCodeData,
        Email:      email,
        CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
    })
    if err != nil {
        // Soft failure: the booking is already durable.
        log.Printf("booking: publish created event failed | booking_id=%d: %v", b.ID, err)
        return false
    }
    return true
}

// canActOn reports whether actorID may read or mutate b: the owner always
// can, anyone else needs an elevated role.
func (s *Service) canActOn(ctx context.Context, actorID uint64, b *model.Booking) (bool, error) {
    if b.OwnerID == actorID {
        return true, nil
    }
    return s.roles.IsElevated(ctx, actorID)
}

// Get returns one booking, subject to the read policy.
func (s *Service) Get(ctx context.Context, actorID, bookingID uint64) (*model.Booking, error) {
    b, err := s.store.GetByID(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    ok, err := s.canActOn(ctx, actorID, b)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, repository.ErrForbidden
    }
    return b, nil
}

// ListForOwner returns the caller's own bookings, newest first.
func (s *Service) ListForOwner(ctx context.Context, ownerID uint64) ([]model.Booking, error) {
    return s.store.ListByOwner(ctx, ownerID)
}

// Search looks a booking up by its public reference, uppercasing the input
// for a case-insensitive exact match.  Elevated roles only.
func (s *Service) Search(ctx context.Context, actorID uint64, reference string) (*model.Booking, error) {
    elevated, err := s.roles.IsElevated(ctx, actorID)
    if err != nil {
        return nil, err
    }
    if !elevated {
        return nil, repository.ErrForbidden
    }
    reference = strings.ToUpper(strings.TrimSpace(reference))
    if reference == "" {
        return nil, repository.ErrNotFound
    }
    return s.store.GetByReference(ctx, reference)
}

// Edit merges raw into the booking's current payload, re-validates the
// result against the booking's type, and replaces data plus regenerated QR
// payload.  Only confirmed bookings are editable; id, reference and
// created_at are never touched.
func (s *Service) Edit(ctx context.Context, actorID, bookingID uint64, raw model.Fields) (*model.Booking, error) {
    b, err := s.store.GetByID(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    ok, err := s.canActOn(ctx, actorID, b)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, repository.ErrForbidden
    }
    if b.Status != model.StatusConfirmed {
        return nil, ErrNotEditable
    }

    now := s.clock.Now()
    merged := b.Data.Clone()
    for k, v := range raw {
        merged[k] = v
    }

    fields, verr := s.validator.Validate(b.Type, merged, now)
    if verr != nil {
        return nil, verr
    }

    bookingAt, err := validation.CombineDateTime(fields["date"].(string), fields["time"].(string), now.Location())
    if err != nil {
        return nil, err
    }

    qr, err := qrPayload(b.Type, fields, now, b.OwnerID)
    if err != nil {
        return nil, err
    }

    if err := s.store.UpdateData(ctx, b.ID, fields, bookingAt, qr, now); err != nil {
        return nil, err
    }

    b.Data = fields
    b.BookingAt = bookingAt
    b.QRCodeData = qr
    b.UpdatedAt = now
    return b, nil
}

// UpdateStatus applies confirmed→used or confirmed→cancelled.  An owner
// may cancel their own booking; marking a booking used needs an elevated
// role.  Everything else is rejected.
func (s *Service) UpdateStatus(ctx context.Context, actorID, bookingID uint64, target model.BookingStatus) (*model.Booking, error) {
    if target != model.StatusUsed && target != model.StatusCancelled {
        return nil, ErrInvalidStatus
    }

    b, err := s.store.GetByID(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    if b.Status != model.StatusConfirmed {
        return nil, ErrNotEditable
    }

    if b.OwnerID == actorID {
        if target != model.StatusCancelled {
            // Redeeming a ticket is the venue's call, not the holder's.
            elevated, err := s.roles.IsElevated(ctx, actorID)
            if err != nil {
                return nil, err
            }
            if !elevated {
                return nil, repository.ErrForbidden
            }
        }
    } else {
        elevated, err := s.roles.IsElevated(ctx, actorID)
        if err != nil {
            return nil, err
        }
        if !elevated {
            return nil, repository.ErrForbidden
        }
    }

    now := s.clock.Now()
    if err := s.store.UpdateStatus(ctx, b.ID, target, now); err != nil {
        return nil, err
    }
    b.Status = target
    b.UpdatedAt = now
    return b, nil
}

// ExpireSweep deletes every booking whose instant is more than 30 days in
// the past, regardless of status, and returns the count removed.  It is
// triggered by an external scheduler and is idempotent.
func (s *Service) ExpireSweep(ctx context.Context) (int64, error) {
    cutoff := s.clock.Now().AddDate(0, 0, -retentionDays)
    return s.store.DeleteOlderThan(ctx, cutoff)
}

// SendConfirmation re-sends the confirmation email for a booking.  Per the
// dispatch contract it re-verifies everything: the booking must exist, and
// the requested address must equal BOTH the booking's stored email and the
// authenticated caller's email — otherwise the send is refused.  A
// delivery failure comes back as *DeliveryError so callers can surface it
// as a warning without failing the request.
func (s *Service) SendConfirmation(ctx context.Context, actorID uint64, actorEmail, requestedEmail string, bookingID uint64) error {
    if s.sender == nil {
        return &DeliveryError{Err: errors.New("mailer not configured")}
    }

    b, err := s.store.GetByID(ctx, bookingID)
    if err != nil {
        return err
    }

    stored, _ := b.Data["email"].(string)
    if requestedEmail == "" || requestedEmail != stored || !strings.EqualFold(requestedEmail, actorEmail) {
        return repository.ErrForbidden
    }

    subject, html := mailer.ConfirmationEmail(b.Type, b.Reference, b.Data, b.QRCodeData)
    if err := s.sender.Send(ctx, requestedEmail, subject, html); err != nil {
        return &DeliveryError{Err: fmt.Errorf("booking %s: %w", b.Reference, err)}
    }
    return nil
}
