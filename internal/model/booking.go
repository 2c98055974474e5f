package model

import "time"

// BookingType tags a booking with the kind of venue being reserved.  The
// set is closed: every booking row stores exactly one of these values and
// the value decides which extended fields the booking_data payload must
// carry.  New types require a schema addition in internal/validation.
type BookingType string

const (
    BookingTypeMuseum  BookingType = "museum"  // museum visit
    BookingTypeLibrary BookingType = "library" // library room booking
    BookingTypeSports  BookingType = "sports"  // sports facility slot
    BookingTypeMovie   BookingType = "movie"   // movie theater seats
    BookingTypeEvent   BookingType = "event"   // event tickets
)

// BookingTypes lists every valid booking type in a stable order.  Used by
// the catalog endpoint and by validation when rejecting unknown tags.
var BookingTypes = []BookingType{
    BookingTypeMuseum,
    BookingTypeLibrary,
    BookingTypeSports,
    BookingTypeMovie,
    BookingTypeEvent,
}

// Valid reports whether t is a member of the closed booking type set.
func (t BookingType) Valid() bool {
    for _, bt := range BookingTypes {
        if t == bt {
            return true
        }
    }
    return false
}

// BookingStatus is the stored lifecycle state of a booking.  "expired" is
// deliberately absent: it is a read-time view derived from the booking
// instant and never persisted, so no background job is needed to flip it.
type BookingStatus string

const (
    StatusConfirmed BookingStatus = "confirmed" // active booking (initial state)
    StatusUsed      BookingStatus = "used"      // redeemed at the venue (terminal)
    StatusCancelled BookingStatus = "cancelled" // withdrawn (terminal)

    // StatusExpired is the derived display status for a confirmed booking
    // whose instant has passed.  Display only; never written to storage.
    StatusExpired BookingStatus = "expired"
)

// Fields is the canonical booking_data payload: field name to value.  After
// validation it contains exactly the common keys (name, email, phone, date,
// time) plus the type-specific keys for the booking's type, with numeric
// values held as int.  It is stored as JSON in the bookings table.
type Fields map[string]any

// Clone returns a shallow copy so callers can merge edits without mutating
// the stored map.
func (f Fields) Clone() Fields {
    out := make(Fields, len(f))
    for k, v := range f {
        out[k] = v
    }
    return out
}

// Booking is the central entity: one reserved slot tied to one owner.
//
// Fields:
//  ID        – primary key identifier, assigned at creation, immutable.
//  OwnerID   – user who created the booking (always taken from the verified
//              token, never from client input).
//  Type      – booking type tag, immutable after creation.
//  Reference – short public lookup code (8 uppercase alphanumerics), unique,
//              immutable.
//  Data      – validated booking_data payload for Type.
//  BookingAt – instant combining the submitted date and time slot; drives
//              expiry computation and the cleanup sweep.
//  QRCodeData – serialized QR payload string; regenerated on every edit so
//               its embedded data always equals Data.
//  Status    – stored lifecycle state (confirmed/used/cancelled).
//  CreatedAt – assigned at creation, immutable.
//  UpdatedAt – last modification timestamp.
type Booking struct {
    ID         uint64        `json:"id"`
    OwnerID    uint64        `json:"owner_id"`
    Type       BookingType   `json:"booking_type"`
    Reference  string        `json:"booking_reference"`
    Data       Fields        `json:"booking_data"`
    BookingAt  time.Time     `json:"booking_date"`
    QRCodeData string        `json:"qr_code_data"`
    Status     BookingStatus `json:"status"`
    CreatedAt  time.Time     `json:"created_at"`
    UpdatedAt  time.Time     `json:"updated_at"`
}

// DisplayStatus derives the status shown to callers: a confirmed booking
// whose instant is in the past reads as expired.  Stored state is untouched.
func (b *Booking) DisplayStatus(now time.Time) BookingStatus {
    if b.Status == StatusConfirmed && b.BookingAt.Before(now) {
        return StatusExpired
    }
    return b.Status
}

// QRPayload is the structure serialized into Booking.QRCodeData.  The
// rendered string (not an image) is the persisted artifact; turning it into
// a scannable code is the client's concern.
type QRPayload struct {
    Type      BookingType `json:"type"`
    Data      Fields      `json:"data"`
    Timestamp string      `json:"timestamp"` // RFC3339
    OwnerID   uint64      `json:"ownerId"`
}
