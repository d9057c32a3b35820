// internal/message/message.go
//
// Formrelay – outbound notification documents and the delivery boundary.
//
// Context
//   The forms subsystem renders each accepted submission into an Email and
//   hands it to a Sender.  The Sender is the only part of the service that
//   talks to the outside world.  It returns the Message-ID it assigned on
//   success, or an error wrapping ErrDelivery on failure.  Callers never
//   retry; one Send call is one delivery attempt.
//
//   Two implementations ship with the service:
//
//     •  SMTPSender (smtp.go)   – production relay over net/smtp.
//     •  LogSender  (this file) – development fallback when no relay is
//        configured.  It logs the envelope and reports success.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package message

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrDelivery marks every failure reported by a Sender.  Handlers match it
// with errors.Is and answer with a generic 500.
var ErrDelivery = errors.New("message delivery failed")

// Email is one outbound notification document.
type Email struct {
	ID      string    // Message-ID without angle brackets; assigned by Send when empty.
	From    string    // RFC 5322 mailbox, e.g. `DIGIX Lab <noreply@digix.example>`.
	To      []string  // Primary recipients.
	ReplyTo string    // Submitter address.
	Subject string    // Unencoded UTF-8 subject line.
	Text    string    // Plain-text body.
	HTML    string    // HTML body.  Optional.
	Date    time.Time // Header date.  Zero means “now” at send time.
}

// Sender delivers a single Email.  Implementations must be safe for
// concurrent use and must not retry internally.
type Sender interface {
	Send(ctx context.Context, msg Email) (string, error)
}

// NewID returns a fresh Message-ID local part scoped to domain.
func NewID(domain string) string {
	if domain == "" {
		domain = "localhost"
	}
	return uuid.NewString() + "@" + domain
}

// domainOf returns the part after the last “@” of an address, tolerating a
// display name and angle brackets.
func domainOf(addr string) string {
	addr = strings.TrimSpace(addr)
	if i := strings.LastIndexByte(addr, '<'); i != -1 {
		addr = strings.TrimSuffix(addr[i+1:], ">")
	}
	if i := strings.LastIndexByte(addr, '@'); i != -1 && i+1 < len(addr) {
		return strings.ToLower(addr[i+1:])
	}
	return ""
}

// -----------------------------------------------------------------------------
// LogSender
// -----------------------------------------------------------------------------

// LogSender writes the envelope to the logger instead of relaying it.  It
// is wired automatically when mail.host is empty so local development works
// without an SMTP account.
type LogSender struct {
	Log *zap.SugaredLogger
}

// Send implements Sender.
func (s LogSender) Send(_ context.Context, msg Email) (string, error) {
	if len(msg.To) == 0 {
		return "", errors.Join(ErrDelivery, errors.New("no recipients"))
	}
	id := msg.ID
	if id == "" {
		id = NewID(domainOf(msg.From))
	}
	log := s.Log
	if log == nil {
		log = zap.S()
	}
	log.Infow("email not relayed (log sender)",
		"message_id", id,
		"to", msg.To,
		"reply_to", msg.ReplyTo,
		"subject", msg.Subject,
		"text_bytes", len(msg.Text),
		"html_bytes", len(msg.HTML),
	)
	return id, nil
}
