// components/forms/decode.go
//
// Request body decoding.  JSON bodies must be a single object.
// Urlencoded bodies are flattened through form.FromValues.  Anything else
// is malformed.

package forms

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/yanizio/formrelay/internal/form"
)

func decodeBody(r *http.Request) (map[string]any, error) {
	switch render.GetRequestContentType(r) {
	case render.ContentTypeJSON:
		var raw map[string]any
		if err := render.DecodeJSON(r.Body, &raw); err != nil {
			return nil, fmt.Errorf("%w: %w", form.ErrMalformed, err)
		}
		if raw == nil {
			return nil, fmt.Errorf("%w: body is not a JSON object", form.ErrMalformed)
		}
		return raw, nil

	case render.ContentTypeForm:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %w", form.ErrMalformed, err)
		}
		return form.FromValues(r.PostForm), nil

	default:
		return nil, fmt.Errorf("%w: unsupported content type %q", form.ErrMalformed, r.Header.Get("Content-Type"))
	}
}
