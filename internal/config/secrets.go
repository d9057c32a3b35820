// internal/config/secrets.go
//
// `vault:` reference resolution.
//
// Context
// -------
// A config string shaped like
//
//	vault:secret/formrelay/smtp#password
//
// is replaced with the value of key `password` in the KV-v2 secret at
// `secret/formrelay/smtp`.  Resolution walks every string field of Config,
// so any setting may be a reference.  `*vault.Client` satisfies
// SecretResolver; tests pass a map-backed fake.
//
// Notes
// -----
//   • Resolved values are cached by the Vault client for secretTTL.
//   • Oxford commas, two spaces after periods.

package config

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// SecretPrefix marks a value that must be fetched from Vault.
const SecretPrefix = "vault:"

const secretTTL = 10 * time.Minute

// SecretResolver fetches one key from a KV-v2 secret.
type SecretResolver interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// ResolverFactory builds the SecretResolver on first need.
type ResolverFactory func(ctx context.Context) (SecretResolver, error)

// NeedsSecrets reports whether any string in c is a `vault:` reference.
func NeedsSecrets(c *Config) bool {
	found := false
	walkStrings(reflect.ValueOf(c).Elem(), func(_ string, v reflect.Value) error {
		if strings.HasPrefix(v.String(), SecretPrefix) {
			found = true
		}
		return nil
	})
	return found
}

// ResolveSecrets replaces every `vault:` reference in c.  It is a no-op
// when c holds no reference.  A reference with a nil resolver is an error.
func ResolveSecrets(ctx context.Context, c *Config, r SecretResolver) error {
	return walkStrings(reflect.ValueOf(c).Elem(), func(field string, v reflect.Value) error {
		raw := v.String()
		if !strings.HasPrefix(raw, SecretPrefix) {
			return nil
		}
		if r == nil {
			return fmt.Errorf("config %s: vault reference but no Vault client (set VAULT_ADDR)", field)
		}
		path, key, ok := strings.Cut(strings.TrimPrefix(raw, SecretPrefix), "#")
		if !ok || path == "" || key == "" {
			return fmt.Errorf("config %s: malformed vault reference %q (want vault:<path>#<key>)", field, raw)
		}
		val, err := r.GetKV(ctx, path, key, secretTTL)
		if err != nil {
			return fmt.Errorf("config %s: %w", field, err)
		}
		v.SetString(val)
		return nil
	})
}

// walkStrings visits every settable string field below v, depth first, in
// declaration order.
func walkStrings(v reflect.Value, fn func(field string, v reflect.Value) error) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		name := t.Field(i).Name
		switch f.Kind() {
		case reflect.Struct:
			err := walkStrings(f, func(sub string, sv reflect.Value) error {
				return fn(name+"."+sub, sv)
			})
			if err != nil {
				return err
			}
		case reflect.String:
			if f.CanSet() {
				if err := fn(name, f); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
