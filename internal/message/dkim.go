// internal/message/dkim.go
//
// Optional DKIM signing for relayed notifications.
//
// Context
//   Some relays (a bare Postfix on the web host, for example) do not sign
//   outbound mail.  When mail.dkim is configured, SMTPSender signs every
//   message with a relaxed/relaxed DKIM-Signature before DATA.
//
//------------------------------------------------------------------------------

package message

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	msgauthdkim "github.com/emersion/go-msgauth/dkim"
)

// DKIMConfig names the selector, signing domain, and private key.  Exactly
// one of KeyPath or KeyPEM must be set.
type DKIMConfig struct {
	Selector string
	Domain   string // Defaults to the sender's domain.
	KeyPath  string
	KeyPEM   string
}

// DKIMSigner applies DKIM signatures.  A nil *DKIMSigner is a no-op.
type DKIMSigner struct {
	selector   string
	domain     string
	key        crypto.Signer
	headerKeys []string
}

// NewDKIMSigner returns nil, nil when cfg is empty so callers can wire the
// result unconditionally.
func NewDKIMSigner(cfg DKIMConfig) (*DKIMSigner, error) {
	if cfg.Selector == "" && cfg.KeyPath == "" && cfg.KeyPEM == "" {
		return nil, nil
	}
	if cfg.Selector == "" {
		return nil, errors.New("dkim: selector is required")
	}

	var pemData []byte
	switch {
	case cfg.KeyPEM != "":
		pemData = []byte(cfg.KeyPEM)
	case cfg.KeyPath != "":
		b, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("dkim: read private key: %w", err)
		}
		pemData = b
	default:
		return nil, errors.New("dkim: key_path or key_pem is required")
	}

	key, err := parsePrivateKey(pemData)
	if err != nil {
		return nil, fmt.Errorf("dkim: parse private key: %w", err)
	}

	return &DKIMSigner{
		selector: cfg.Selector,
		domain:   cfg.Domain,
		key:      key,
		headerKeys: []string{
			"from", "to", "reply-to", "subject", "date",
			"message-id", "mime-version", "content-type",
		},
	}, nil
}

// Sign returns message with a DKIM-Signature header prepended.
func (s *DKIMSigner) Sign(message []byte, from string) ([]byte, error) {
	if s == nil || s.key == nil {
		return message, nil
	}

	domain := s.domain
	if domain == "" {
		domain = domainOf(from)
	}
	if domain == "" {
		return nil, errors.New("dkim: unable to determine signing domain")
	}

	opts := &msgauthdkim.SignOptions{
		Domain:                 domain,
		Selector:               s.selector,
		Signer:                 s.key,
		HeaderCanonicalization: msgauthdkim.CanonicalizationRelaxed,
		BodyCanonicalization:   msgauthdkim.CanonicalizationRelaxed,
		HeaderKeys:             s.headerKeys,
	}

	var signed bytes.Buffer
	if err := msgauthdkim.Sign(&signed, bytes.NewReader(message), opts); err != nil {
		return nil, fmt.Errorf("dkim: signing failed: %w", err)
	}
	return signed.Bytes(), nil
}

func parsePrivateKey(pemData []byte) (crypto.Signer, error) {
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			break
		}
		switch block.Type {
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			return key, nil
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			if signer, ok := key.(crypto.Signer); ok {
				return signer, nil
			}
			return nil, errors.New("unsupported private key type in PKCS#8 container")
		}
		pemData = rest
	}
	return nil, errors.New("no private key found in PEM data")
}
