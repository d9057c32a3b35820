// internal/message/mime.go
//
// RFC 5322 serialisation for Email.
//
// Context
//   SMTP DATA expects a complete message: headers, blank line, body.  Bytes
//   builds that payload with CRLF line endings.  When both Text and HTML are
//   present the body is multipart/alternative (text first, HTML last, so
//   clients prefer HTML).  Parts use quoted-printable so long lines and
//   non-ASCII content survive 7-bit relays.
//
//   The multipart boundary is derived from the Message-ID, which keeps the
//   output byte-identical for identical input.
//
//------------------------------------------------------------------------------

package message

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"
)

// Bytes renders msg as a wire-ready RFC 5322 message.  ID and Date must be
// set; Send fills both before calling Bytes.
func (msg Email) Bytes() ([]byte, error) {
	if msg.ID == "" {
		return nil, errors.New("message: missing Message-ID")
	}
	if msg.Date.IsZero() {
		return nil, errors.New("message: missing Date")
	}
	if len(msg.To) == 0 {
		return nil, errors.New("message: no recipients")
	}
	if msg.Text == "" && msg.HTML == "" {
		return nil, errors.New("message: empty body")
	}

	var buf bytes.Buffer
	header := func(k, v string) {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(v)
		buf.WriteString("\r\n")
	}

	header("From", msg.From)
	header("To", strings.Join(msg.To, ", "))
	if msg.ReplyTo != "" {
		header("Reply-To", msg.ReplyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", msg.Date.Format(time.RFC1123Z))
	header("Message-ID", "<"+msg.ID+">")
	header("MIME-Version", "1.0")

	// Single-part shortcut.
	if msg.HTML == "" || msg.Text == "" {
		ctype, body := "text/plain; charset=utf-8", msg.Text
		if msg.HTML != "" {
			ctype, body = "text/html; charset=utf-8", msg.HTML
		}
		header("Content-Type", ctype)
		header("Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		if err := writeQP(&buf, body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(boundaryFor(msg.ID)); err != nil {
		return nil, fmt.Errorf("message: boundary: %w", err)
	}
	header("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	for _, part := range []struct{ ctype, body string }{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	} {
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.ctype},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, fmt.Errorf("message: create part: %w", err)
		}
		qp := quotedprintable.NewWriter(pw)
		if _, err := qp.Write([]byte(crlf(part.body))); err != nil {
			return nil, fmt.Errorf("message: encode part: %w", err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("message: encode part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("message: close multipart: %w", err)
	}
	return buf.Bytes(), nil
}

func writeQP(buf *bytes.Buffer, body string) error {
	qp := quotedprintable.NewWriter(buf)
	if _, err := qp.Write([]byte(crlf(body))); err != nil {
		return fmt.Errorf("message: encode body: %w", err)
	}
	return qp.Close()
}

// boundaryFor derives a stable multipart boundary from the Message-ID.
func boundaryFor(id string) string {
	sum := sha256.Sum256([]byte(id))
	return "formrelay-" + hex.EncodeToString(sum[:12])
}

// crlf normalises bare LF line endings to CRLF.
func crlf(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
