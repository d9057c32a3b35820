// internal/form/validate.go
//
// Formrelay – Forms subsystem: server-side validation.
//
// Context
//   Validate is the single gate between untrusted input and the notifier.
//   It decodes the raw payload into the typed struct for the kind, runs
//   every go-playground/validator rule with no short-circuit across fields,
//   and reports at most one ErrorField per field, in struct declaration
//   order.  A decode failure for a field outranks its rule failures.
//
//   Three rules are custom:
//
//     •  phone    – `^[+]?[0-9()\-\s]{10,}$`, where the space class also
//                   takes Unicode spaces.
//     •  isodate  – YYYY-MM-DD or RFC 3339.
//     •  notpast  – the date is today or later on the injected clock.
//
//   Validation is a pure function of (kind, raw, clock).
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// ErrorField describes a single validation failure.
type ErrorField struct {
	Name    string `json:"field"`
	Message string `json:"message"`
}

// ValidationError wraps []ErrorField and satisfies the error interface so
// handlers can tell user input errors from system failures.
type ValidationError struct{ Fields []ErrorField }

func (ValidationError) Error() string { return "form validation failed" }

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// ErrMalformed marks a request body that could not be decoded at all.
var ErrMalformed = errors.New("malformed request body")

// ErrUnknownKind is returned for a Kind with no catalog entry.
var ErrUnknownKind = errors.New("unknown form kind")

// -----------------------------------------------------------------------------
// Validator
// -----------------------------------------------------------------------------

// phoneRE allows Unicode spaces (U+00A0 and friends) as well as ASCII
// whitespace, since pasted numbers often carry them.
var phoneRE = regexp.MustCompile(`^[+]?[0-9()\-\s\v\p{Z}\x{FEFF}]{10,}$`)

// Validator checks submissions.  It is safe for concurrent use.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// NewValidator returns a Validator whose notpast rule reads now.  A nil
// now means time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	fv := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), now: now}

	fv.v.RegisterTagNameFunc(wireName)
	mustRegister(fv.v, "phone", func(fl validator.FieldLevel) bool {
		return phoneRE.MatchString(fl.Field().String())
	})
	mustRegister(fv.v, "isodate", func(fl validator.FieldLevel) bool {
		_, ok := parseDate(fl.Field().String(), time.UTC)
		return ok
	})
	mustRegister(fv.v, "notpast", func(fl validator.FieldLevel) bool {
		now := fv.now()
		d, ok := parseDate(fl.Field().String(), now.Location())
		if !ok {
			return false
		}
		y, m, day := now.Date()
		return !d.Before(time.Date(y, m, day, 0, 0, 0, 0, now.Location()))
	})
	return fv
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Validate decodes and checks raw against kind k.  On success the typed
// Submission is returned with a nil error.  On rejection the error is a
// ValidationError listing every failing field, and the Submission is nil.
// Any other error is a fault on our side, not in the input.
func (fv *Validator) Validate(k Kind, raw map[string]any) (Submission, error) {
	fd, ok := FormDefFor(k)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, k)
	}
	target, _ := newTarget(k)

	failed := decode(raw, target)

	var verrs validator.ValidationErrors
	if err := fv.v.Struct(target); errors.As(err, &verrs) {
		for _, fe := range verrs {
			if _, seen := failed[fe.Field()]; !seen {
				failed[fe.Field()] = fe.Tag()
			}
		}
	} else if err != nil {
		return nil, fmt.Errorf("validate %s: %w", k, err)
	}

	if len(failed) == 0 {
		return asSubmission(target), nil
	}

	var out []ErrorField
	for _, name := range fieldNames(reflect.TypeOf(target).Elem()) {
		tag, bad := failed[name]
		if !bad {
			continue
		}
		out = append(out, ErrorField{Name: name, Message: messageFor(fd, name, tag)})
	}
	return nil, ValidationError{Fields: out}
}

// messageFor maps a failing tag to the catalog message for field name.
func messageFor(fd *FormDef, name, tag string) string {
	f, ok := fd.Field(name)
	if !ok {
		return name + " is invalid"
	}
	if msg, ok := f.Messages[tag]; ok {
		return msg
	}
	if tag == tagString {
		return f.Label + " must be text"
	}
	return f.Label + " is invalid"
}

// parseDate accepts YYYY-MM-DD (midnight in loc) or RFC 3339 (converted
// to loc and truncated to the day).
func parseDate(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}
