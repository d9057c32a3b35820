package message

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/formrelay/internal/logger"
)

// fakeRelay is a minimal SMTP server.  rcptReply lets a test reject RCPT,
// and quitReply lets it fail QUIT.
type fakeRelay struct {
	ln        net.Listener
	rcptReply string
	quitReply string
	cmds      chan string
	data      chan string
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	return &fakeRelay{
		ln:        ln,
		rcptReply: "250 OK",
		quitReply: "221 bye",
		cmds:      make(chan string, 32),
		data:      make(chan string, 1),
	}
}

func (f *fakeRelay) port() int { return f.ln.Addr().(*net.TCPAddr).Port }

func (f *fakeRelay) serve(t *testing.T) {
	go func() {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
		br := bufio.NewReader(conn)
		bw := bufio.NewWriter(conn)
		reply := func(s string) {
			fmt.Fprint(bw, s+"\r\n")
			bw.Flush()
		}

		reply("220 fake ESMTP")
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			f.cmds <- line
			verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch {
			case verb == "EHLO" || verb == "HELO":
				reply("250 fake")
			case strings.HasPrefix(strings.ToUpper(line), "MAIL FROM"):
				reply("250 OK")
			case strings.HasPrefix(strings.ToUpper(line), "RCPT TO"):
				reply(f.rcptReply)
			case verb == "DATA":
				reply("354 go ahead")
				var sb strings.Builder
				for {
					l, err := br.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					sb.WriteString(l)
				}
				f.data <- sb.String()
				reply("250 queued")
			case verb == "QUIT":
				reply(f.quitReply)
				return
			case verb == "RSET" || verb == "NOOP":
				reply("250 OK")
			default:
				reply("502 unknown")
			}
		}
	}()
}

func testEmail() Email {
	return Email{
		From:    "DIGIX Lab <noreply@digix.example>",
		To:      []string{"inbox@digix.example"},
		ReplyTo: "a@b.com",
		Subject: "Contact Form: Hello there",
		Text:    "Name: Al\n",
		HTML:    "<p>Name: Al</p>",
	}
}

func TestSMTPSender_Delivers(t *testing.T) {
	relay := newFakeRelay(t)
	relay.serve(t)

	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: relay.port(), HeloName: "formrelay.test"}, nil)
	s.now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }

	id, err := s.Send(context.Background(), testEmail())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@digix.example"), "id %q", id)

	var cmds []string
	select {
	case body := <-relay.data:
		assert.Contains(t, body, "Reply-To: a@b.com")
		assert.Contains(t, body, "Message-ID: <"+id+">")
		assert.Contains(t, body, "multipart/alternative")
	case <-time.After(3 * time.Second):
		t.Fatal("relay received no DATA")
	}
	close(relay.cmds)
	for c := range relay.cmds {
		cmds = append(cmds, c)
	}
	assert.Equal(t, "EHLO formrelay.test", cmds[0])
	assert.Contains(t, cmds, "MAIL FROM:<noreply@digix.example>")
	assert.Contains(t, cmds, "RCPT TO:<inbox@digix.example>")
}

func TestSMTPSender_RejectedRecipient(t *testing.T) {
	relay := newFakeRelay(t)
	relay.rcptReply = "550 no such user"
	relay.serve(t)

	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: relay.port()}, nil)
	_, err := s.Send(context.Background(), testEmail())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDelivery))
	assert.Contains(t, err.Error(), "rcpt to")
}

func TestSMTPSender_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close() // nothing listens any more

	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: port, Timeout: time.Second}, nil)
	_, err = s.Send(context.Background(), testEmail())
	require.ErrorIs(t, err, ErrDelivery)
}

func TestSMTPSender_StartTLSRequired(t *testing.T) {
	relay := newFakeRelay(t)
	relay.serve(t)

	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: relay.port(), StartTLS: true}, nil)
	_, err := s.Send(context.Background(), testEmail())
	require.ErrorIs(t, err, ErrDelivery)
	assert.Contains(t, err.Error(), "starttls required")
}

func TestSMTPSender_BadFrom(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1}, nil)
	msg := testEmail()
	msg.From = "not an address"
	_, err := s.Send(context.Background(), msg)
	require.ErrorIs(t, err, ErrDelivery)
}

func TestSMTPSender_QuitFailureAfterAccept(t *testing.T) {
	relay := newFakeRelay(t)
	relay.quitReply = "421 closing channel"
	relay.serve(t)

	core, logs := observer.New(zapcore.WarnLevel)
	ctx := logger.WithContext(context.Background(), zap.New(core).Sugar())

	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: relay.port()}, nil)
	id, err := s.Send(ctx, testEmail())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case <-relay.data:
	case <-time.After(3 * time.Second):
		t.Fatal("relay received no DATA")
	}
	warned := logs.FilterMessage("smtp quit failed after message accepted").All()
	require.Len(t, warned, 1)
	assert.Equal(t, id, warned[0].ContextMap()["message_id"])
}
