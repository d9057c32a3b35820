package message

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func stamped() Email {
	m := testEmail()
	m.ID = "abc@digix.example"
	m.Date = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	return m
}

func TestBytes_MultipartAlternative(t *testing.T) {
	raw, err := stamped().Bytes()
	require.NoError(t, err)

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", msg.Header.Get("Reply-To"))
	assert.Equal(t, "<abc@digix.example>", msg.Header.Get("Message-ID"))

	mt, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mt)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var types []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		types = append(types, p.Header.Get("Content-Type"))
	}
	assert.Equal(t, []string{"text/plain; charset=utf-8", "text/html; charset=utf-8"}, types)
}

func TestBytes_Deterministic(t *testing.T) {
	a, err := stamped().Bytes()
	require.NoError(t, err)
	b, err := stamped().Bytes()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBytes_NonASCIISubject(t *testing.T) {
	m := stamped()
	m.Subject = "Contact Form: Café"
	raw, err := m.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Subject: =?utf-8?q?")
}

func TestBytes_RequiresStamp(t *testing.T) {
	_, err := testEmail().Bytes()
	require.Error(t, err)
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "digix.example", domainOf("DIGIX Lab <noreply@Digix.Example>"))
	assert.Equal(t, "b.com", domainOf("a@b.com"))
	assert.Equal(t, "", domainOf("nobody"))
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := LogSender{Log: zap.New(core).Sugar()}

	id, err := s.Send(context.Background(), testEmail())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@digix.example"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, id, logs.All()[0].ContextMap()["message_id"])

	_, err = s.Send(context.Background(), Email{From: "x@y.z"})
	require.ErrorIs(t, err, ErrDelivery)
}

func TestDKIMSigner(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	signer, err := NewDKIMSigner(DKIMConfig{Selector: "mail", KeyPEM: string(pemKey)})
	require.NoError(t, err)

	raw, err := stamped().Bytes()
	require.NoError(t, err)
	signed, err := signer.Sign(raw, "noreply@digix.example")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(signed), "DKIM-Signature:"))
	hdr := strings.Join(strings.Fields(strings.SplitN(string(signed), "From:", 2)[0]), "")
	assert.Contains(t, hdr, "d=digix.example")
	assert.Contains(t, hdr, "s=mail")
}

func TestNewDKIMSigner_Disabled(t *testing.T) {
	s, err := NewDKIMSigner(DKIMConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	raw := []byte("x")
	out, err := s.Sign(raw, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, raw, out)

	_, err = NewDKIMSigner(DKIMConfig{KeyPEM: "junk"})
	require.Error(t, err)
}
