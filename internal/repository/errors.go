// Package repository is the MySQL data access layer.  This file defines
// sentinel errors shared across repositories so handlers and services can
// map failure modes to responses without inspecting SQL errors.
package repository

import "errors"

// ErrNotFound is returned when no row matches a lookup.  Handlers translate
// it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// booking they do not own and they hold no elevated role.  Handlers
// translate it into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrDuplicateReference is returned when an insert trips the unique index
// on bookings.booking_reference.  The service regenerates the reference and
// retries; it never reaches a handler.
var ErrDuplicateReference = errors.New("duplicate booking reference")

// ErrEmailExists is returned when registering an email that is already
// taken.  Handlers translate it into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")
