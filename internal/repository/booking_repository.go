package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/venuebook/venue-booking-api/internal/model"
)

// BookingRepo provides CRUD operations for bookings.  The booking_data
// payload is stored as a JSON column; all timestamp columns are stored in
// UTC.  Ownership and role checks live in the service layer — this type
// only talks to the database.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for transaction management.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, owner_id, booking_type, booking_reference, booking_data,
	booking_at, qr_code_data, status, created_at, updated_at`

// Create inserts a booking row and populates the generated ID on b.  When
// the insert trips the unique index on booking_reference it returns
// ErrDuplicateReference so the caller can regenerate and retry.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
    data, err := json.Marshal(b.Data)
    if err != nil {
        return err
    }
    const q = `INSERT INTO bookings
		(owner_id, booking_type, booking_reference, booking_data, booking_at, qr_code_data, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        b.OwnerID, string(b.Type), b.Reference, data, b.BookingAt.UTC(),
        b.QRCodeData, string(b.Status), b.CreatedAt.UTC(), b.UpdatedAt.UTC())
    if err != nil {
        var me *mysql.MySQLError
        if errors.As(err, &me) && me.Number == 1062 {
            return ErrDuplicateReference
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    return nil
}

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
    var (
        b       model.Booking
        typ     string
        status  string
        rawData []byte
    )
    err := row.Scan(&b.ID, &b.OwnerID, &typ, &b.Reference, &rawData,
        &b.BookingAt, &b.QRCodeData, &status, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        return nil, err
    }
    b.Type = model.BookingType(typ)
    b.Status = model.BookingStatus(status)
    if len(rawData) > 0 {
        if err := json.Unmarshal(rawData, &b.Data); err != nil {
            return nil, err
        }
    }
    return &b, nil
}

// GetByID returns a single booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    return b, nil
}

// GetByReference returns the booking carrying the given public reference,
// or ErrNotFound.  Callers uppercase the reference before lookup.
func (r *BookingRepo) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_reference = ?`
    b, err := scanBooking(r.db.QueryRowContext(ctx, q, reference))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    return b, nil
}

// ListByOwner returns all bookings created by ownerID, newest first.  When
// none exist an empty slice is returned.
func (r *BookingRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE owner_id = ? ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, ownerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// UpdateData replaces the booking_data payload, the derived booking instant
// and the regenerated QR payload.  Two concurrent edits race here;
// last-write-wins is accepted (no version column).
func (r *BookingRepo) UpdateData(ctx context.Context, id uint64, data model.Fields, bookingAt time.Time, qrCodeData string, updatedAt time.Time) error {
    raw, err := json.Marshal(data)
    if err != nil {
        return err
    }
    const q = `UPDATE bookings SET booking_data = ?, booking_at = ?, qr_code_data = ?, updated_at = ? WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, raw, bookingAt.UTC(), qrCodeData, updatedAt.UTC(), id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}

// UpdateStatus writes a new stored status.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus, updatedAt time.Time) error {
    const q = `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, string(status), updatedAt.UTC(), id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}

// DeleteOlderThan removes every booking whose instant is at or before
// cutoff, irrespective of status, and returns the number of rows removed.
// Re-running with the same cutoff is safe: deleted rows simply no longer
// match.
func (r *BookingRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
    const q = `DELETE FROM bookings WHERE booking_at <= ?`
    res, err := r.db.ExecContext(ctx, q, cutoff.UTC())
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
