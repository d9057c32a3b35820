// components/forms/forms.go
//
// Formrelay forms component – the public form API.
//
// Context
//   Three POST endpoints, one per form kind, plus a health probe.  Each
//   POST handler is pure dispatch:
//
//      decode body → form.Validator → form.Notifier → JSON response
//
//   The handler owns no business rules.  It maps outcomes to status codes:
//
//      •  200  {success:true,  message}           accepted and sent.
//      •  400  {success:false, message, errors}   validation failed.
//      •  400  {success:false, message}           body not decodable.
//      •  500  {success:false, message}           delivery failed.
//
//   Delivery causes go to the log, never into the response.  Delivery is
//   detached from client cancellation: a hang-up after validation does not
//   abort the relay.
//
//------------------------------------------------------------------------------

package forms

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/yanizio/formrelay/internal/component"
	"github.com/yanizio/formrelay/internal/form"
	"github.com/yanizio/formrelay/internal/logger"
	"github.com/yanizio/formrelay/internal/metrics"
	"github.com/yanizio/formrelay/internal/requestinfo"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Response messages that are not form specific.
const (
	MsgInvalid   = "Please correct the highlighted fields and try again."
	MsgMalformed = "Invalid request body."
	MsgTooLarge  = "Request body too large."
)

// Notifier is the slice of *form.Notifier the handlers use.
type Notifier interface {
	Notify(ctx context.Context, sub form.Submission, meta form.Meta) (string, error)
}

// Options carries the non-dependency settings.
type Options struct {
	Environment string           // Reported by /health.
	SiteName    string           // Reported by /health.
	Now         func() time.Time // Clock; time.Now when nil.
}

// Component serves the form API.
type Component struct {
	validator *form.Validator
	notifier  Notifier
	opts      Options
}

// New wires the component to its collaborators.
func New(v *form.Validator, n Notifier, opts Options) *Component {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Component{validator: v, notifier: n, opts: opts}
}

// Response is the JSON body of every POST endpoint.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  []form.ErrorField `json:"errors,omitempty"`
}

// Health is the JSON body of GET /health.
type Health struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "forms" }

// Routes registers the form API on r.
func (c *Component) Routes(r chi.Router) {
	r.Get("/health", c.handleHealth)
	r.Post("/contact", c.submit(form.KindContact))
	r.Post("/register", c.submit(form.KindRegistration))
	r.Post("/consultation", c.submit(form.KindConsultation))
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Health{
		Status:      "OK",
		Message:     c.opts.SiteName + " Backend Server is running",
		Timestamp:   c.opts.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Environment: c.opts.Environment,
	})
}

func (c *Component) submit(kind form.Kind) http.HandlerFunc {
	fd, ok := form.FormDefFor(kind)
	if !ok {
		panic("forms: no catalog entry for " + string(kind))
	}
	label := string(kind)

	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context()).With("form", label)

		raw, err := decodeBody(r)
		if err != nil {
			metrics.SubmissionsTotal.WithLabelValues(label, metrics.ResultMalformed).Inc()
			log.Warnw("malformed submission", "err", err)
			msg := MsgMalformed
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				msg = MsgTooLarge
			}
			reply(w, r, http.StatusBadRequest, Response{Message: msg})
			return
		}

		sub, err := c.validator.Validate(kind, raw)
		if err != nil {
			var ve form.ValidationError
			if !errors.As(err, &ve) {
				log.Errorw("validation failed unexpectedly", "err", err)
				reply(w, r, http.StatusInternalServerError, Response{Message: fd.Failure})
				return
			}
			metrics.SubmissionsTotal.WithLabelValues(label, metrics.ResultRejected).Inc()
			log.Infow("submission rejected", "fields", len(ve.Fields))
			reply(w, r, http.StatusBadRequest, Response{Message: MsgInvalid, Errors: ve.Fields})
			return
		}
		metrics.SubmissionsTotal.WithLabelValues(label, metrics.ResultAccepted).Inc()

		// Once dispatched, delivery runs to completion even if the client
		// goes away.  mail.timeout is the only bound.
		start := time.Now()
		id, err := c.notifier.Notify(context.WithoutCancel(r.Context()), sub, c.metaFor(r))
		metrics.ObserveDelivery(label, start, err)
		if err != nil {
			log.Errorw("notification failed", "err", err)
			reply(w, r, http.StatusInternalServerError, Response{Message: fd.Failure})
			return
		}

		msg, err := fd.SuccessFor(sub)
		if err != nil {
			log.Warnw("success message template failed", "err", err)
			msg = "Your submission has been received."
		}
		log.Infow("submission relayed", "message_id", id)
		reply(w, r, http.StatusOK, Response{Success: true, Message: msg})
	}
}

/*──────────────────────────── Helpers ──────────────────────────────────────*/

func reply(w http.ResponseWriter, r *http.Request, status int, body Response) {
	render.Status(r, status)
	render.JSON(w, r, body)
}

// metaFor collects the notification footer for r.
func (c *Component) metaFor(r *http.Request) form.Meta {
	m := form.Meta{
		SubmittedAt: c.opts.Now(),
		RequestID:   middleware.GetReqID(r.Context()),
	}
	if ri := requestinfo.FromContext(r.Context()); ri != nil {
		m.ClientIP = ri.IP()
		m.Browser = ri.UA.BrowserLine()
		m.Platform = ri.UA.PlatformLine()
		m.Location = ri.Location()
	}
	return m
}
