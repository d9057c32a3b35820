// internal/form/decode.go
//
// Formrelay – Forms subsystem: lenient payload decoding.
//
// Context
//   Browsers post either JSON or urlencoded bodies, so the same field can
//   arrive as "25", 25, or 25.0, and a checkbox as true, "on", or "1".
//   decode coerces a raw map into the typed submission struct and records a
//   validation tag for every value it cannot coerce.  Those tags resolve
//   to messages through the catalog, exactly like validator tags.
//
//   String values are whitespace-trimmed.  Text fields take JSON strings
//   only; a number or boolean where text is expected fails with "string".
//   Unknown keys are ignored.  null and missing are the same thing.
//
//------------------------------------------------------------------------------

package form

import (
	"encoding/json"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Decoder failure tags.  They share the namespace of validator tags.
const (
	tagString  = "string"
	tagNumber  = "number"
	tagInteger = "integer"
	tagBoolean = "boolean"
)

// FromValues flattens urlencoded form values into the raw map Validate
// accepts.  Only the first value of a repeated key is kept.
func FromValues(v url.Values) map[string]any {
	out := make(map[string]any, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}

// decode fills the struct behind target from raw.  It returns the failing
// tag per wire name.
func decode(raw map[string]any, target any) map[string]string {
	errs := make(map[string]string)
	v := reflect.ValueOf(target).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		name := wireName(t.Field(i))
		in, ok := raw[name]
		if !ok || in == nil {
			continue
		}
		f := v.Field(i)

		switch f.Kind() {
		case reflect.String:
			s, ok := asString(in)
			if !ok {
				errs[name] = tagString
				continue
			}
			f.SetString(s)

		case reflect.Bool:
			b, present, ok := asBool(in)
			if !ok {
				errs[name] = tagBoolean
				continue
			}
			if present {
				f.SetBool(b)
			}

		case reflect.Pointer: // *int
			n, present, tag := asInt(in)
			if tag != "" {
				errs[name] = tag
				continue
			}
			if present {
				f.Set(reflect.ValueOf(&n))
			}
		}
	}
	return errs
}

// -----------------------------------------------------------------------------
// Coercion helpers
// -----------------------------------------------------------------------------

func asString(in any) (string, bool) {
	switch x := in.(type) {
	case string:
		return strings.TrimSpace(x), true
	}
	return "", false
}

// asBool reports the value, whether one was supplied, and whether it was
// understood.  An empty string counts as not supplied.
func asBool(in any) (val, present, ok bool) {
	switch x := in.(type) {
	case bool:
		return x, true, true
	case float64:
		switch x {
		case 1:
			return true, true, true
		case 0:
			return false, true, true
		}
	case json.Number:
		return asBool(string(x))
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "":
			return false, false, true
		case "true", "on", "1":
			return true, true, true
		case "false", "0":
			return false, true, true
		}
	}
	return false, true, false
}

// asInt returns the value, whether one was supplied, and the failing tag.
func asInt(in any) (int, bool, string) {
	var f float64
	switch x := in.(type) {
	case int:
		return x, true, ""
	case float64:
		f = x
	case json.Number:
		return asInt(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false, ""
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, true, tagNumber
		}
		f = p
	default:
		return 0, true, tagNumber
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, tagNumber
	}
	if f != math.Trunc(f) {
		return 0, true, tagInteger
	}
	// Clamp so range rules, not overflow, report huge values.
	f = math.Max(math.MinInt32, math.Min(math.MaxInt32, f))
	return int(f), true, ""
}
