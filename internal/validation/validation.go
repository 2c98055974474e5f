package validation

import (
    "fmt"
    "math"
    "regexp"
    "sort"
    "strconv"
    "strings"
    "time"

    "github.com/venuebook/venue-booking-api/internal/model"
)

// FieldError carries one violated rule for one field.
type FieldError struct {
    Field   string `json:"field"`
    Message string `json:"message"`
}

// ValidationError aggregates every violated rule for a submission.  Errors
// are sorted by field name so the output is deterministic regardless of the
// order keys were checked in.
type ValidationError struct {
    Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
    parts := make([]string, 0, len(e.Errors))
    for _, fe := range e.Errors {
        parts = append(parts, fe.Field+": "+fe.Message)
    }
    return "validation failed: " + strings.Join(parts, ", ")
}

// Has reports whether an error was recorded for the named field.
func (e *ValidationError) Has(field string) bool {
    for _, fe := range e.Errors {
        if fe.Field == field {
            return true
        }
    }
    return false
}

// Limits holds the configurable numeric caps.  Two of the original form
// revisions disagreed on these, so they are configuration rather than
// constants; defaults follow the stricter revision.
type Limits struct {
    SportsMaxDurationHours int // max hours for a sports facility slot
    EventMaxTickets        int // max tickets per event booking
}

// DefaultLimits returns the stricter caps observed in the form.
func DefaultLimits() Limits {
    return Limits{SportsMaxDurationHours: 4, EventMaxTickets: 10}
}

// Validator validates raw submissions against the per-type schemas.
type Validator struct {
    limits Limits
}

// New returns a Validator using the given limits.  Zero or negative caps
// fall back to the defaults.
func New(limits Limits) *Validator {
    def := DefaultLimits()
    if limits.SportsMaxDurationHours < 1 {
        limits.SportsMaxDurationHours = def.SportsMaxDurationHours
    }
    if limits.EventMaxTickets < 1 {
        limits.EventMaxTickets = def.EventMaxTickets
    }
    return &Validator{limits: limits}
}

var (
    emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
    phoneRe = regexp.MustCompile(`^[0-9+\-\s()]{10,15}$`)
)

// collector accumulates field errors and reads typed values out of the raw
// field bag.  Every accessor records a message instead of failing fast so a
// single pass reports all violations.
type collector struct {
    raw  model.Fields
    errs []FieldError
}

func (c *collector) add(field, message string) {
    c.errs = append(c.errs, FieldError{Field: field, Message: message})
}

// str returns the trimmed string value for key; missing or non-string
// values come back as "".
func (c *collector) str(key string) string {
    v, ok := c.raw[key]
    if !ok || v == nil {
        return ""
    }
    s, ok := v.(string)
    if !ok {
        return ""
    }
    return strings.TrimSpace(s)
}

// integer coerces the value for key into an int.  JSON numbers arrive as
// float64 and form submissions as numeric strings; both are accepted.
// Records the given message when the value is absent or not a whole number.
func (c *collector) integer(key, message string) (int, bool) {
    v, ok := c.raw[key]
    if !ok || v == nil {
        c.add(key, message)
        return 0, false
    }
    switch n := v.(type) {
    case int:
        return n, true
    case int64:
        return int(n), true
    case float64:
        if n != math.Trunc(n) {
            c.add(key, message)
            return 0, false
        }
        return int(n), true
    case string:
        i, err := strconv.Atoi(strings.TrimSpace(n))
        if err != nil {
            c.add(key, message)
            return 0, false
        }
        return i, true
    default:
        c.add(key, message)
        return 0, false
    }
}

// common holds the normalized fields every booking type requires.
type common struct {
    Name  string
    Email string
    Phone string
    Date  string // YYYY-MM-DD
    Time  string // HH:MM
}

func (c *collector) common(now time.Time) common {
    var out common

    out.Name = c.str("name")
    if n := len(out.Name); n < 2 {
        c.add("name", "Name must be at least 2 characters")
    } else if n > 100 {
        c.add("name", "Name too long")
    }

    out.Email = c.str("email")
    if !emailRe.MatchString(out.Email) || len(out.Email) > 255 {
        c.add("email", "Invalid email address")
    }

    out.Phone = c.str("phone")
    if !phoneRe.MatchString(out.Phone) {
        c.add("phone", "Invalid phone number format")
    }

    out.Date = c.str("date")
    if d, err := time.ParseInLocation("2006-01-02", out.Date, now.Location()); err != nil {
        c.add("date", "Invalid date")
    } else {
        // Compare against local midnight so a booking for today stays valid
        // for the whole day.
        today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
        if d.Before(today) {
            c.add("date", "Date must be today or in the future")
        }
    }

    out.Time = c.str("time")
    if out.Time == "" {
        c.add("time", "Time is required")
    } else if _, err := time.Parse("15:04", out.Time); err != nil {
        c.add("time", "Invalid time format")
    }

    return out
}

// Validate checks raw against the schema for t and returns the normalized
// payload: strings trimmed, numeric strings coerced to int, and exactly the
// required keys for the type present.  All violated rules are collected; the
// returned *ValidationError lists one message per violation sorted by field.
func (v *Validator) Validate(t model.BookingType, raw model.Fields, now time.Time) (model.Fields, *ValidationError) {
    if !t.Valid() {
        return nil, &ValidationError{Errors: []FieldError{{Field: "booking_type", Message: "Unknown booking type"}}}
    }

    c := &collector{raw: raw}
    base := c.common(now)

    out := model.Fields{
        "name":  base.Name,
        "email": base.Email,
        "phone": base.Phone,
        "date":  base.Date,
        "time":  base.Time,
    }

    switch t {
    case model.BookingTypeMuseum:
        state := c.str("state")
        museums, known := MuseumsByState[state]
        if !known {
            c.add("state", "State selection is required")
        }
        museum := c.str("museum")
        if museum == "" {
            c.add("museum", "Museum selection is required")
        } else if known && !inSet(museums, museum) {
            c.add("museum", "Museum not available in selected state")
        }
        visitors, ok := c.integer("visitors", "At least 1 visitor required")
        if ok {
            if visitors < 1 {
                c.add("visitors", "At least 1 visitor required")
            } else if visitors > 50 {
                c.add("visitors", "Maximum 50 visitors allowed")
            }
        }
        out["state"] = state
        out["museum"] = museum
        out["visitors"] = visitors

    case model.BookingTypeLibrary:
        purpose := c.str("purpose")
        if purpose == "" {
            c.add("purpose", "Purpose is required")
        } else if !inSet(LibraryPurposes, purpose) {
            c.add("purpose", "Invalid purpose")
        }
        out["purpose"] = purpose

    case model.BookingTypeSports:
        facility := c.str("facility")
        if facility == "" {
            c.add("facility", "Facility selection is required")
        } else if !inSet(SportsFacilities, facility) {
            c.add("facility", "Invalid facility")
        }
        duration, ok := c.integer("duration", "At least 1 hour required")
        if ok {
            if duration < 1 {
                c.add("duration", "At least 1 hour required")
            } else if duration > v.limits.SportsMaxDurationHours {
                c.add("duration", fmt.Sprintf("Maximum %d hours allowed", v.limits.SportsMaxDurationHours))
            }
        }
        out["facility"] = facility
        out["duration"] = duration

    case model.BookingTypeMovie:
        movie := c.str("movie")
        if movie == "" {
            c.add("movie", "Movie selection is required")
        }
        seats, ok := c.integer("seats", "At least 1 seat required")
        if ok {
            if seats < 1 {
                c.add("seats", "At least 1 seat required")
            } else if seats > 10 {
                c.add("seats", "Maximum 10 seats allowed")
            }
        }
        screen := c.str("screen")
        if !inSet(MovieScreens, screen) {
            c.add("screen", "Screen selection is required")
        }
        out["movie"] = movie
        out["seats"] = seats
        out["screen"] = screen

    case model.BookingTypeEvent:
        event := c.str("event")
        if event == "" {
            c.add("event", "Event selection is required")
        }
        tickets, ok := c.integer("tickets", "At least 1 ticket required")
        if ok {
            if tickets < 1 {
                c.add("tickets", "At least 1 ticket required")
            } else if tickets > v.limits.EventMaxTickets {
                c.add("tickets", fmt.Sprintf("Maximum %d tickets allowed", v.limits.EventMaxTickets))
            }
        }
        category := c.str("category")
        if !inSet(EventCategories, category) {
            c.add("category", "Invalid ticket category")
        }
        out["event"] = event
        out["tickets"] = tickets
        out["category"] = category
    }

    if len(c.errs) > 0 {
        sort.Slice(c.errs, func(i, j int) bool {
            if c.errs[i].Field == c.errs[j].Field {
                return c.errs[i].Message < c.errs[j].Message
            }
            return c.errs[i].Field < c.errs[j].Field
        })
        return nil, &ValidationError{Errors: c.errs}
    }
    return out, nil
}

// CombineDateTime merges the validated date and time fields into a single
// instant in the given location.  Validation guarantees both parse.
func CombineDateTime(date, timeSlot string, loc *time.Location) (time.Time, error) {
    return time.ParseInLocation("2006-01-02 15:04", date+" "+timeSlot, loc)
}
