// internal/form/notifier.go
//
// Formrelay – Forms subsystem: notification dispatch.
//
// Context
//   The Notifier is the post-validation action for every form.  It picks the
//   recipient for the submission kind, renders the document, and hands it
//   to the injected message.Sender exactly once.  The Sender's outcome comes
//   back unchanged: a Message-ID, or an error wrapping message.ErrDelivery.
//   There is no queue and no retry.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"fmt"

	"github.com/yanizio/formrelay/internal/logger"
	"github.com/yanizio/formrelay/internal/message"
)

// Recipients maps each form kind to the address that receives it.
type Recipients struct {
	Contact      string
	Registration string
	Consultation string
}

// For returns the recipient configured for k.
func (r Recipients) For(k Kind) string {
	switch k {
	case KindContact:
		return r.Contact
	case KindRegistration:
		return r.Registration
	case KindConsultation:
		return r.Consultation
	}
	return ""
}

// Notifier renders and sends notifications.  Safe for concurrent use.
type Notifier struct {
	sender message.Sender
	to     Recipients
	from   string
}

// NewNotifier wires a Notifier to sender.  from is the envelope and header
// sender, e.g. `DIGIX Lab <noreply@digix.example>`.
func NewNotifier(sender message.Sender, to Recipients, from string) *Notifier {
	return &Notifier{sender: sender, to: to, from: from}
}

// Notify delivers one notification for sub and returns the Message-ID.
func (n *Notifier) Notify(ctx context.Context, sub Submission, meta Meta) (string, error) {
	rcpt := n.to.For(sub.Kind())
	if rcpt == "" {
		return "", fmt.Errorf("%w: no recipient configured for %s", message.ErrDelivery, sub.Kind())
	}

	msg, err := Render(sub, meta, rcpt, n.from)
	if err != nil {
		return "", fmt.Errorf("render %s notification: %w", sub.Kind(), err)
	}

	id, err := n.sender.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	logger.FromContext(ctx).Infow("notification sent",
		"form", sub.Kind(), "message_id", id, "to", rcpt)
	return id, nil
}
