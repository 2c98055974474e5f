// Package mailer assembles and sends booking confirmation emails through a
// Resend-compatible HTTP delivery API.  The core only builds the payload;
// template rendering to a scannable QR image is delegated to an external
// renderer referenced from the HTML.
package mailer

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"
)

// Mailer is a thin client for a delivery API accepting
// {from, to, subject, html} and returning success/failure.
type Mailer struct {
    endpoint string
    apiKey   string
    from     string
    client   *http.Client
}

// New returns a Mailer for the given API endpoint and key.  The from
// address appears as the sender on every confirmation.
func New(endpoint, apiKey, from string) *Mailer {
    return &Mailer{
        endpoint: endpoint,
        apiKey:   apiKey,
        from:     from,
        client:   &http.Client{Timeout: 10 * time.Second},
    }
}

type sendRequest struct {
    From    string   `json:"from"`
    To      []string `json:"to"`
    Subject string   `json:"subject"`
    HTML    string   `json:"html"`
}

// Send delivers one HTML email.  A non-2xx response is returned as an
// error; callers treat it as a soft delivery failure, never as a reason to
// roll back the booking it announces.
func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
    body, err := json.Marshal(sendRequest{
        From:    m.from,
        To:      []string{to},
        Subject: subject,
        HTML:    html,
    })
    if err != nil {
        return err
    }

    req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
    if err != nil {
        return err
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("Authorization", "Bearer "+m.apiKey)

    resp, err := m.client.Do(req)
    if err != nil {
        return err
    }
    defer resp.Body.Close()

    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
        return fmt.Errorf("email api returned %d: %s", resp.StatusCode, msg)
    }
    return nil
}
