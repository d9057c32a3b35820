// internal/config/validator.go
//
// Startup validation of the merged Config.
//
// Context
// -------
// `Load` calls `validateStruct` once defaults are applied and secrets are
// resolved.  Field rules live in the `validate` tags of model.go.  Rules
// that span fields (DKIM needs a key once a selector is set, SMTP auth
// needs both halves of the credential) are registered here as struct-level
// validations.
//
// Errors are reported with koanf key paths (`mail.recipients.contact`), the
// same names an operator writes in YAML or FORMRELAY_* variables.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	val.RegisterStructValidation(dkimRules, DKIM{})
	val.RegisterStructValidation(mailRules, Mail{})
	return val
}

// dkimRules: a selector needs exactly one key source.
func dkimRules(sl validator.StructLevel) {
	d := sl.Current().Interface().(DKIM)
	if d.Selector == "" {
		return
	}
	switch {
	case d.KeyPath == "" && d.KeyPEM == "":
		sl.ReportError(d.KeyPath, "key_path", "KeyPath", "required_with_selector", "")
	case d.KeyPath != "" && d.KeyPEM != "":
		sl.ReportError(d.KeyPEM, "key_pem", "KeyPEM", "excluded_with_key_path", "")
	}
}

// mailRules: a username without a password would fail AUTH on every send.
func mailRules(sl validator.StructLevel) {
	m := sl.Current().Interface().(Mail)
	if m.Username != "" && m.Password == "" {
		sl.ReportError(m.Password, "password", "Password", "required_with_username", "")
	}
}

// validateStruct returns one error listing every violated key, or nil.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		_, key, _ := strings.Cut(fe.Namespace(), ".")
		msgs = append(msgs, fmt.Sprintf("%s (%s)", key, fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
}
