package mailer

import (
    "fmt"
    "html"
    "net/url"
    "strings"

    "github.com/venuebook/venue-booking-api/internal/model"
)

// qrRenderEndpoint renders an arbitrary payload string as a scannable QR
// image.  Rendering is an external collaborator concern; the stored
// artifact stays the payload string itself.
const qrRenderEndpoint = "https://api.qrserver.com/v1/create-qr-code/"

// ConfirmationEmail builds the subject and HTML body for a booking
// confirmation: the reference, the common details, the type-specific
// details, and an image tag pointing the QR renderer at the payload.
func ConfirmationEmail(t model.BookingType, reference string, data model.Fields, qrCodeData string) (subject, htmlBody string) {
    subject = "Booking Confirmation - " + reference

    var specific strings.Builder
    switch t {
    case model.BookingTypeMuseum:
        detail(&specific, "State", field(data, "state"))
        detail(&specific, "Museum", field(data, "museum"))
        detail(&specific, "Number of Visitors", field(data, "visitors"))
    case model.BookingTypeLibrary:
        detail(&specific, "Purpose", field(data, "purpose"))
    case model.BookingTypeSports:
        detail(&specific, "Facility", field(data, "facility"))
        detail(&specific, "Duration", field(data, "duration")+" hours")
    case model.BookingTypeMovie:
        detail(&specific, "Movie", field(data, "movie"))
        detail(&specific, "Screen", field(data, "screen"))
        detail(&specific, "Seats", field(data, "seats"))
    case model.BookingTypeEvent:
        detail(&specific, "Event", field(data, "event"))
        detail(&specific, "Tickets", field(data, "tickets"))
        detail(&specific, "Category", field(data, "category"))
    }

    qrImg := qrRenderEndpoint + "?size=250x250&data=" + url.QueryEscape(qrCodeData)

    var b strings.Builder
    b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">`)
    b.WriteString(`<h1 style="color: #333; text-align: center;">Booking Confirmation</h1>`)
    b.WriteString(`<div style="background: #f5f5f5; padding: 20px; border-radius: 8px;">`)
    b.WriteString(`<h2 style="color: #555; margin-top: 0;">Booking Reference: ` + html.EscapeString(reference) + `</h2>`)

    b.WriteString(`<h3 style="color: #666;">Personal Information</h3>`)
    detail(&b, "Name", field(data, "name"))
    detail(&b, "Email", field(data, "email"))
    detail(&b, "Phone", field(data, "phone"))

    b.WriteString(`<h3 style="color: #666;">Booking Details</h3>`)
    detail(&b, "Type", titleCase(string(t)))
    detail(&b, "Date", field(data, "date"))
    detail(&b, "Time", field(data, "time"))
    b.WriteString(specific.String())

    b.WriteString(`<div style="margin: 30px 0; text-align: center;">`)
    b.WriteString(`<h3 style="color: #666;">Your QR Code</h3>`)
    b.WriteString(`<img src="` + qrImg + `" alt="Booking QR Code" style="max-width: 250px; border: 2px solid #ddd; padding: 10px; background: white;"/>`)
    b.WriteString(`<p style="color: #888; font-size: 12px;">Show this QR code at the venue</p>`)
    b.WriteString(`</div></div>`)

    b.WriteString(`<div style="text-align: center; color: #888; font-size: 12px; margin-top: 30px;">`)
    b.WriteString(`<p>Thank you for your booking!</p><p>Please keep this email for your records.</p>`)
    b.WriteString(`</div></div>`)

    return subject, b.String()
}

// detail appends one labelled line, HTML-escaping the value.
func detail(b *strings.Builder, label, value string) {
    fmt.Fprintf(b, `<p><strong>%s:</strong> %s</p>`, label, html.EscapeString(value))
}

// field renders a payload value as a display string; numbers come through
// as stored ints.
func field(data model.Fields, key string) string {
    v, ok := data[key]
    if !ok || v == nil {
        return ""
    }
    switch n := v.(type) {
    case string:
        return n
    case int:
        return fmt.Sprintf("%d", n)
    case float64:
        return fmt.Sprintf("%.0f", n)
    default:
        return fmt.Sprintf("%v", n)
    }
}

func titleCase(s string) string {
    if s == "" {
        return s
    }
    return strings.ToUpper(s[:1]) + s[1:]
}
