// internal/form/catalog.go
//
// Formrelay – Forms subsystem: embedded YAML catalog.
//
// Context
//   catalog.yaml declares, per form kind, the notification title, subject
//   template, sections of labelled fields, option display labels, error
//   messages keyed by validation tag, and the response messages.  It is
//   embedded at build time and parsed once on first use.  The renderer, the
//   validator, and the HTTP component read it through FormDefFor.
//
// Workflow
//   •  loadCatalog parses the YAML and checks structure against the typed
//      submission structs: every struct field appears exactly once, and
//      every template parses.
//   •  FormDefFor returns the parsed definition for one kind.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	_ "embed"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FormDef describes one form kind.
type FormDef struct {
	Kind      Kind         `yaml:"kind"`
	Title     string       `yaml:"title"`      // Notification heading.
	Accent    string       `yaml:"accent"`     // Header colour in the HTML body.
	Subject   string       `yaml:"subject"`    // text/template over display labels.
	Footer    string       `yaml:"footer"`     // Origin line under the timestamp.
	Success   string       `yaml:"success"`    // text/template; response on success.
	Failure   string       `yaml:"failure"`    // Response on delivery failure.
	NextSteps []string     `yaml:"next_steps"` // Optional follow-up checklist.
	Sections  []SectionDef `yaml:"sections"`

	subjectTpl *template.Template
	successTpl *template.Template
	fields     map[string]*FieldDef
}

// SectionDef groups fields under a heading in the notification.
type SectionDef struct {
	Title  string     `yaml:"title"`
	Fields []FieldDef `yaml:"fields"`
}

// FieldDef holds everything a human reads about one field.
type FieldDef struct {
	Name      string            `yaml:"name"`      // Wire name.
	Label     string            `yaml:"label"`     // Display label.
	Empty     string            `yaml:"empty"`     // Placeholder for an empty optional value.
	Multiline bool              `yaml:"multiline"` // Render as a block.
	Yes       string            `yaml:"yes"`       // Display text for true.
	No        string            `yaml:"no"`        // Display text for false.
	Options   map[string]string `yaml:"options"`   // Value → display label.
	Messages  map[string]string `yaml:"messages"`  // Validation tag → message.
}

type catalogFile struct {
	Forms []*FormDef `yaml:"forms"`
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

var (
	catalogOnce sync.Once
	catalog     map[Kind]*FormDef
	catalogErr  error
)

// FormDefFor returns the definition for k.  The boolean is false for an
// unknown kind.  A broken embedded catalog is a build defect, so it panics.
func FormDefFor(k Kind) (*FormDef, bool) {
	catalogOnce.Do(func() {
		catalog, catalogErr = loadCatalog(catalogYAML)
	})
	if catalogErr != nil {
		panic(catalogErr)
	}
	fd, ok := catalog[k]
	return fd, ok
}

// Field returns the definition of the named field.
func (fd *FormDef) Field(name string) (*FieldDef, bool) {
	f, ok := fd.fields[name]
	return f, ok
}

// SubjectFor executes the subject template for sub.
func (fd *FormDef) SubjectFor(sub Submission) (string, error) {
	return execText(fd.subjectTpl, fd.labels(sub))
}

// SuccessFor executes the success message template for sub.
func (fd *FormDef) SuccessFor(sub Submission) (string, error) {
	return execText(fd.successTpl, fd.labels(sub))
}

// labels returns sub's values with option values replaced by their labels.
func (fd *FormDef) labels(sub Submission) map[string]string {
	vals := sub.Values()
	for name, v := range vals {
		if f, ok := fd.fields[name]; ok {
			if lbl, ok := f.Options[v]; ok {
				vals[name] = lbl
			}
		}
	}
	return vals
}

// -----------------------------------------------------------------------------
// Loader
// -----------------------------------------------------------------------------

func loadCatalog(raw []byte) (map[Kind]*FormDef, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parse form catalog: %w", err)
	}

	out := make(map[Kind]*FormDef, len(cf.Forms))
	for _, fd := range cf.Forms {
		if _, dup := out[fd.Kind]; dup {
			return nil, fmt.Errorf("form catalog: duplicate kind %q", fd.Kind)
		}
		if err := validateFormDef(fd); err != nil {
			return nil, err
		}
		out[fd.Kind] = fd
	}
	for _, k := range Kinds {
		if _, ok := out[k]; !ok {
			return nil, fmt.Errorf("form catalog: kind %q missing", k)
		}
	}
	return out, nil
}

// validateFormDef enforces the rules YAML tags cannot: every struct field
// appears exactly once, labels are present, and templates parse.
func validateFormDef(fd *FormDef) error {
	target, err := newTarget(fd.Kind)
	if err != nil {
		return fmt.Errorf("form catalog: %w", err)
	}

	fd.fields = make(map[string]*FieldDef)
	for si := range fd.Sections {
		s := &fd.Sections[si]
		for fi := range s.Fields {
			f := &s.Fields[fi]
			if f.Name == "" || f.Label == "" {
				return fmt.Errorf("form catalog %s: field in section %q missing name or label", fd.Kind, s.Title)
			}
			if _, dup := fd.fields[f.Name]; dup {
				return fmt.Errorf("form catalog %s: duplicate field %q", fd.Kind, f.Name)
			}
			fd.fields[f.Name] = f
		}
	}

	for _, name := range fieldNames(reflect.TypeOf(target).Elem()) {
		if _, ok := fd.fields[name]; !ok {
			return fmt.Errorf("form catalog %s: field %q not laid out", fd.Kind, name)
		}
	}
	if len(fd.fields) != reflect.TypeOf(target).Elem().NumField() {
		return fmt.Errorf("form catalog %s: unknown fields laid out", fd.Kind)
	}

	if fd.subjectTpl, err = parseText(fd.Kind, "subject", fd.Subject); err != nil {
		return err
	}
	if fd.successTpl, err = parseText(fd.Kind, "success", fd.Success); err != nil {
		return err
	}
	if fd.Failure == "" {
		return fmt.Errorf("form catalog %s: missing failure message", fd.Kind)
	}
	return nil
}

func parseText(k Kind, name, src string) (*template.Template, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("form catalog %s: missing %s", k, name)
	}
	t, err := template.New(string(k) + "." + name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("form catalog %s: %s template: %w", k, name, err)
	}
	return t, nil
}

func execText(t *template.Template, data map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
