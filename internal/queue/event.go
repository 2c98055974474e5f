// Package queue defines message payloads exchanged over the message broker.
package queue

import "github.com/venuebook/venue-booking-api/internal/model"

// BookingCreatedQueue is the durable queue confirmation events travel on.
const BookingCreatedQueue = "booking.created"

// BookingCreatedEvent is published after a booking row is durably
// persisted.  It carries everything the email consumer needs so delivery
// never has to query the primary database.
type BookingCreatedEvent struct {
    BookingID  uint64            `json:"booking_id"`
    OwnerID    uint64            `json:"owner_id"`
    Type       model.BookingType `json:"booking_type"`
    Reference  string            `json:"booking_reference"`
    Data       model.Fields      `json:"booking_data"`
    QRCodeData string            `json:"qr_code_data"`
    Email      string            `json:"email"`
    CreatedAt  string            `json:"created_at"` // RFC3339
}
