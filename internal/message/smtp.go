// internal/message/smtp.go
//
// Formrelay – SMTP relay sender.
//
// Context
//   SMTPSender submits one Email to a configured relay (Gmail, SES, Postfix,
//   and so on).  The session is the classic sequence:
//
//      dial → EHLO → STARTTLS (when offered) → AUTH (when configured)
//           → MAIL FROM → RCPT TO (each recipient) → DATA → QUIT
//
//   Port 465 is treated as implicit TLS.  The whole session shares one
//   deadline (Timeout, or the context deadline when it is earlier), so a
//   stalled relay cannot pin a request forever.  Any failure is wrapped in
//   ErrDelivery and returned as-is.  There is no retry loop here.
//
//   When a DKIM signer is configured the serialised message is signed just
//   before DATA.
//
//------------------------------------------------------------------------------

package message

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/yanizio/formrelay/internal/logger"
)

// DefaultTimeout bounds one SMTP session when SMTPConfig.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// SMTPConfig holds relay settings.  It is copied out of config.Mail by
// cmd/web so this package stays free of the config tree.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	HeloName string        // EHLO name; "localhost" when empty.
	StartTLS bool          // Require STARTTLS on plain connections.
	Timeout  time.Duration // Whole-session deadline.
}

// SMTPSender implements Sender over net/smtp.  Zero value is invalid; use
// NewSMTPSender.
type SMTPSender struct {
	cfg    SMTPConfig
	signer *DKIMSigner
	now    func() time.Time

	// dial is swapped by tests.
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewSMTPSender returns a sender for cfg.  signer may be nil.
func NewSMTPSender(cfg SMTPConfig, signer *DKIMSigner) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HeloName == "" {
		cfg.HeloName = "localhost"
	}
	d := &net.Dialer{Timeout: cfg.Timeout}
	return &SMTPSender{
		cfg:    cfg,
		signer: signer,
		now:    time.Now,
		dial:   d.DialContext,
	}
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, msg Email) (string, error) {
	id, err := s.send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return id, nil
}

func (s *SMTPSender) send(ctx context.Context, msg Email) (string, error) {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return "", fmt.Errorf("sender address: %w", err)
	}
	if msg.ID == "" {
		msg.ID = NewID(domainOf(from.Address))
	}
	if msg.Date.IsZero() {
		msg.Date = s.now()
	}

	data, err := msg.Bytes()
	if err != nil {
		return "", err
	}
	if s.signer != nil {
		if data, err = s.signer.Sign(data, from.Address); err != nil {
			return "", err
		}
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := s.dial(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	deadline := s.now().Add(s.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", fmt.Errorf("set deadline: %w", err)
	}

	tlsConf := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
	if s.cfg.Port == 465 {
		conn = tls.Client(conn, tlsConf)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return "", fmt.Errorf("new client: %w", err)
	}
	defer client.Close()

	if err := client.Hello(s.cfg.HeloName); err != nil {
		return "", fmt.Errorf("ehlo: %w", err)
	}

	if s.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConf); err != nil {
				return "", fmt.Errorf("starttls: %w", err)
			}
		} else if s.cfg.StartTLS {
			return "", fmt.Errorf("starttls required but not offered by %s", s.cfg.Host)
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return "", fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(from.Address); err != nil {
		return "", fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range msg.To {
		a, err := mail.ParseAddress(rcpt)
		if err != nil {
			return "", fmt.Errorf("recipient %q: %w", rcpt, err)
		}
		if err := client.Rcpt(a.Address); err != nil {
			return "", fmt.Errorf("rcpt to: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("data start: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("data write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("data close: %w", err)
	}

	// The relay has accepted the message; a failed QUIT must not make the
	// submitter send it again.
	if err := client.Quit(); err != nil {
		logger.FromContext(ctx).Warnw("smtp quit failed after message accepted",
			"message_id", msg.ID, "relay", addr, "err", err)
	}
	return msg.ID, nil
}
