// Package notify delivers failure notifications to operators by email.
package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/botmind/rpa-observe/pkg/warden"
)

// sendFunc matches smtp.SendMail; replaceable in tests.
type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPConfig configures the mailer.
type SMTPConfig struct {
	// Host and Port locate the SMTP relay.
	Host string
	Port int

	// From is the sender address on every notification.
	From string

	// Username and Password enable plain auth when both are set.
	// Internal relays typically leave them empty.
	Username string
	Password string
}

// SMTPMailer implements warden.Notifier over a plain SMTP relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send sendFunc
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send delivers the notification, attaching the screenshot when present.
func (m *SMTPMailer) Send(ctx context.Context, n warden.Notification) error {
	if n.To == "" {
		return fmt.Errorf("notify: no recipient address configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	msg := buildMessage(m.cfg.From, n)
	if err := m.send(addr, auth, m.cfg.From, []string{n.To}, msg); err != nil {
		return fmt.Errorf("notify: send to %s: %w", n.To, err)
	}
	return nil
}

// mimeBoundary separates the text body from the screenshot attachment.
// Fixed rather than random; the content never contains it.
const mimeBoundary = "warden-notification-boundary"

// buildMessage renders the full RFC 5322 message with a multipart body
// when a screenshot is attached.
func buildMessage(from string, n warden.Notification) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", n.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", n.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(n.Screenshot) == 0 {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(n.Body)
		return []byte(b.String())
	}

	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(n.Body)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: image/png\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString("Content-Disposition: attachment; filename=\"error_screenshot.png\"\r\n\r\n")
	b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(n.Screenshot)))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return []byte(b.String())
}

// wrapBase64 folds encoded content to 76-character lines per RFC 2045.
func wrapBase64(encoded string) string {
	const lineLen = 76
	var b strings.Builder
	for len(encoded) > lineLen {
		b.WriteString(encoded[:lineLen])
		b.WriteString("\r\n")
		encoded = encoded[lineLen:]
	}
	b.WriteString(encoded)
	return b.String()
}
