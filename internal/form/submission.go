// internal/form/submission.go
//
// Formrelay – Forms subsystem: typed submissions.
//
// Context
//   Every form the site posts maps to one fixed struct.  The struct tags
//   carry both the wire name (`json`) and the validation rules
//   (`validate`, go-playground/validator).  Field declaration order is the
//   order in which validation errors are reported.
//
//   A Submission is built once at the boundary by Validate and never
//   mutated afterwards.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"reflect"
	"strconv"
)

// Kind names one of the three form flows.
type Kind string

const (
	KindContact      Kind = "contact"
	KindRegistration Kind = "registration"
	KindConsultation Kind = "consultation"
)

// Kinds lists every flow in a stable order.
var Kinds = []Kind{KindContact, KindRegistration, KindConsultation}

// Submission is an accepted, normalised form payload.
type Submission interface {
	Kind() Kind
	// ReplyTo is the submitter address.
	ReplyTo() string
	// Values returns every field as display text keyed by wire name.
	Values() map[string]string
}

// Contact is the general enquiry form.
type Contact struct {
	Name    string `json:"name"    validate:"required,min=2,max=100"`
	Email   string `json:"email"   validate:"required,email"`
	Subject string `json:"subject" validate:"required,min=5,max=200"`
	Message string `json:"message" validate:"required,min=10,max=2000"`
}

// Registration is the course registration form.
type Registration struct {
	Course       string `json:"course"       validate:"required"`
	FullName     string `json:"fullName"     validate:"required,min=2,max=100"`
	Phone        string `json:"phone"        validate:"required,phone"`
	Email        string `json:"email"        validate:"required,email"`
	Age          *int   `json:"age"          validate:"required,min=14,max=70"`
	Education    string `json:"education"    validate:"required,oneof=high-school bachelors masters phd diploma other"`
	Field        string `json:"field"        validate:"max=100"`
	Experience   string `json:"experience"   validate:"required,oneof=beginner intermediate advanced"`
	CurrentRole  string `json:"currentRole"  validate:"max=100"`
	Motivation   string `json:"motivation"   validate:"required,min=20,max=1000"`
	Schedule     string `json:"schedule"     validate:"required,oneof=morning afternoon evening weekend flexible"`
	StartDate    string `json:"startDate"    validate:"omitempty,isodate,notpast"`
	Questions    string `json:"questions"    validate:"max=500"`
	Newsletter   bool   `json:"newsletter"`
	Consultation bool   `json:"consultation"`
}

// Consultation is the project consultation request form.
type Consultation struct {
	Name               string `json:"name"               validate:"required,min=2,max=100"`
	Email              string `json:"email"              validate:"required,email"`
	Phone              string `json:"phone"              validate:"required,phone"`
	Company            string `json:"company"            validate:"max=100"`
	ProjectType        string `json:"projectType"        validate:"required,oneof=web-development mobile-app game-development animation-vfx ui-ux-design ai-ml cybersecurity digital-marketing e-commerce other"`
	ProjectDescription string `json:"projectDescription" validate:"required,min=20,max=2000"`
	Budget             string `json:"budget"             validate:"omitempty,oneof=under-10k 10k-25k 25k-50k 50k-100k over-100k not-sure"`
	Timeline           string `json:"timeline"           validate:"omitempty,oneof=asap 1-month 2-3-months 3-6-months 6-months-plus flexible"`
	Goals              string `json:"goals"              validate:"max=1000"`
}

func (Contact) Kind() Kind      { return KindContact }
func (Registration) Kind() Kind { return KindRegistration }
func (Consultation) Kind() Kind { return KindConsultation }

func (c Contact) ReplyTo() string      { return c.Email }
func (r Registration) ReplyTo() string { return r.Email }
func (c Consultation) ReplyTo() string { return c.Email }

func (c Contact) Values() map[string]string      { return valuesOf(c) }
func (r Registration) Values() map[string]string { return valuesOf(r) }
func (c Consultation) Values() map[string]string { return valuesOf(c) }

// newTarget returns a pointer to the zero struct for k.
func newTarget(k Kind) (any, error) {
	switch k {
	case KindContact:
		return &Contact{}, nil
	case KindRegistration:
		return &Registration{}, nil
	case KindConsultation:
		return &Consultation{}, nil
	}
	return nil, fmt.Errorf("unknown form kind %q", k)
}

// asSubmission dereferences a target built by newTarget.
func asSubmission(p any) Submission {
	switch v := p.(type) {
	case *Contact:
		return *v
	case *Registration:
		return *v
	case *Consultation:
		return *v
	}
	return nil
}

// fieldNames returns the wire names of t's fields in declaration order.
func fieldNames(t reflect.Type) []string {
	out := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		out = append(out, wireName(t.Field(i)))
	}
	return out
}

func wireName(f reflect.StructField) string {
	if n := f.Tag.Get("json"); n != "" && n != "-" {
		return n
	}
	return f.Name
}

// valuesOf flattens a submission struct into display text.  Optional
// values left empty stay empty; the renderer supplies placeholders.
func valuesOf(sub any) map[string]string {
	v := reflect.ValueOf(sub)
	t := v.Type()
	out := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := v.Field(i)
		var txt string
		switch f.Kind() {
		case reflect.String:
			txt = f.String()
		case reflect.Bool:
			txt = strconv.FormatBool(f.Bool())
		case reflect.Pointer:
			if !f.IsNil() {
				txt = strconv.FormatInt(f.Elem().Int(), 10)
			}
		}
		out[wireName(t.Field(i))] = txt
	}
	return out
}
