// internal/form/render.go
//
// Formrelay – Forms subsystem: notification renderer.
//
// Context
//   Render turns an accepted Submission into a message.Email.  It is a pure
//   function: the same submission, metadata, and addresses always yield the
//   same document, byte for byte, because the timestamp travels in Meta.
//   Nothing here talks to the network.
//
// Workflow
//   •  The catalog supplies section order, labels, empty placeholders, and
//      the subject template.
//   •  Every field is rendered, empty optional ones with their placeholder,
//      so the recipient sees the complete submission.
//   •  The HTML part goes through html/template so submitter text is
//      escaped.  The plain-text part uses text/template.
//   •  A footer carries the submission time and the submitter metadata
//      collected by requestinfo.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	htmltpl "html/template"
	"strings"
	texttpl "text/template"
	"time"

	"github.com/yanizio/formrelay/internal/message"
)

// Meta is request context shown in the notification footer.  Zero fields
// are omitted.
type Meta struct {
	SubmittedAt time.Time
	RequestID   string
	ClientIP    string
	Browser     string // e.g. "Chrome 126"
	Platform    string // e.g. "macOS (computer)"
	Location    string // e.g. "Lahore, Pakistan"
}

// TimestampLayout formats Meta.SubmittedAt in notifications.
const TimestampLayout = "Monday, 02 Jan 2006 15:04:05 MST"

const defaultEmpty = "Not provided"

// Render builds the notification for sub, addressed to recipient and sent
// from from.
func Render(sub Submission, meta Meta, recipient, from string) (message.Email, error) {
	fd, ok := FormDefFor(sub.Kind())
	if !ok {
		return message.Email{}, ErrMalformed
	}

	subject, err := fd.SubjectFor(sub)
	if err != nil {
		return message.Email{}, err
	}

	doc := buildView(fd, sub, meta)

	var html, text bytes.Buffer
	if err := htmlBody.Execute(&html, doc); err != nil {
		return message.Email{}, err
	}
	if err := textBody.Execute(&text, doc); err != nil {
		return message.Email{}, err
	}

	return message.Email{
		From:    from,
		To:      []string{recipient},
		ReplyTo: sub.ReplyTo(),
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
		Date:    meta.SubmittedAt,
	}, nil
}

// -----------------------------------------------------------------------------
// View model
// -----------------------------------------------------------------------------

type viewField struct {
	Label     string
	Value     string
	Multiline bool
}

type viewSection struct {
	Title  string
	Fields []viewField
}

type view struct {
	Title     string
	Accent    string
	Footer    string
	Submitted string
	Sections  []viewSection
	NextSteps []string
	Meta      []viewField
}

func buildView(fd *FormDef, sub Submission, meta Meta) view {
	vals := sub.Values()
	doc := view{
		Title:     fd.Title,
		Accent:    fd.Accent,
		Footer:    fd.Footer,
		Submitted: meta.SubmittedAt.Format(TimestampLayout),
		NextSteps: fd.NextSteps,
	}
	for _, s := range fd.Sections {
		vs := viewSection{Title: s.Title}
		for i := range s.Fields {
			f := &s.Fields[i]
			vs.Fields = append(vs.Fields, viewField{
				Label:     f.Label,
				Value:     displayValue(f, vals[f.Name]),
				Multiline: f.Multiline,
			})
		}
		doc.Sections = append(doc.Sections, vs)
	}

	for _, m := range []viewField{
		{Label: "Request ID", Value: meta.RequestID},
		{Label: "Client IP", Value: meta.ClientIP},
		{Label: "Browser", Value: meta.Browser},
		{Label: "Platform", Value: meta.Platform},
		{Label: "Location", Value: meta.Location},
	} {
		if m.Value != "" {
			doc.Meta = append(doc.Meta, m)
		}
	}
	return doc
}

// displayValue maps a raw value to what the recipient reads.  Option
// values keep the raw value next to the label.
func displayValue(f *FieldDef, v string) string {
	switch {
	case f.Yes != "" || f.No != "":
		if v == "true" {
			return f.Yes
		}
		return f.No
	case v == "":
		if f.Empty != "" {
			return f.Empty
		}
		return defaultEmpty
	}
	if lbl, ok := f.Options[v]; ok {
		return lbl + " (" + v + ")"
	}
	return v
}

// -----------------------------------------------------------------------------
// Templates
// -----------------------------------------------------------------------------

var htmlBody = htmltpl.Must(htmltpl.New("html").Funcs(htmltpl.FuncMap{
	"css": func(s string) htmltpl.CSS { return htmltpl.CSS(cssColor(s)) },
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto;">
<h2 style="color: {{css .Accent}}; border-bottom: 2px solid {{css .Accent}}; padding-bottom: 10px;">{{.Title}}</h2>
{{- range .Sections}}
<div style="background: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
<h3 style="margin-top: 0;">{{.Title}}</h3>
{{- range .Fields}}
{{- if .Multiline}}
<p><strong>{{.Label}}:</strong></p>
<div style="background: white; padding: 15px; border-radius: 5px; white-space: pre-wrap;">{{.Value}}</div>
{{- else}}
<p><strong>{{.Label}}:</strong> {{.Value}}</p>
{{- end}}
{{- end}}
</div>
{{- end}}
{{- if .NextSteps}}
<div style="background: {{css .Accent}}; color: white; padding: 15px; border-radius: 8px; margin: 20px 0;">
<h3 style="margin-top: 0;">Next Steps</h3>
<ul style="margin-bottom: 0;">
{{- range .NextSteps}}
<li>{{.}}</li>
{{- end}}
</ul>
</div>
{{- end}}
<p style="color: #6B7280; font-size: 12px;">
Submitted: {{.Submitted}}<br>
{{.Footer}}
{{- range .Meta}}<br>
{{.Label}}: {{.Value}}
{{- end}}
</p>
</div>
</body>
</html>
`))

var textBody = texttpl.Must(texttpl.New("text").Parse(`{{.Title}}
{{- range .Sections}}

== {{.Title}} ==
{{- range .Fields}}
{{- if .Multiline}}
{{.Label}}:
{{.Value}}
{{- else}}
{{.Label}}: {{.Value}}
{{- end}}
{{- end}}
{{- end}}
{{- if .NextSteps}}

== Next Steps ==
{{- range .NextSteps}}
- {{.}}
{{- end}}
{{- end}}

Submitted: {{.Submitted}}
{{.Footer}}
{{- range .Meta}}
{{.Label}}: {{.Value}}
{{- end}}
`))

// cssColor admits only #rgb / #rrggbb colours from the catalog.
func cssColor(s string) string {
	if (len(s) == 4 || len(s) == 7) && s[0] == '#' && strings.Trim(s[1:], "0123456789abcdefABCDEF") == "" {
		return s
	}
	return "#3B82F6"
}
