// Package notifications is the transactional email outbox. State changes
// enqueue emails in the same database transaction; a dispatch worker claims
// due rows, renders PDF attachments by reference and sends them through
// SendGrid.
//
// Pipeline: enqueue (in tx) → pg_notify wake-up → claim → render → send → mark.
package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	dispatchInterval  = 30 * time.Second
	dispatchBatchSize = 50
	retryBaseDelay    = time.Minute
	retryMaxDelay     = 6 * time.Hour
)

// Outbox row statuses.
const (
	StatusScheduled = "scheduled"
	StatusSending   = "sending"
	StatusSent      = "sent"
	StatusFailed    = "failed"
)

// AttachmentKind names a document rendered at send time.
type AttachmentKind string

const (
	AttachmentNone    AttachmentKind = ""
	AttachmentInvoice AttachmentKind = "invoice"
	AttachmentWelcome AttachmentKind = "welcome"
)

// Email is an outbound message. Attachments are stored by reference
// (kind + record id) and rendered when the message is sent.
type Email struct {
	To             string
	ToName         string
	Subject        string
	Text           string
	HTML           string
	AttachmentKind AttachmentKind
	AttachmentRef  *uuid.UUID
	ScheduledFor   time.Time
}

// Message is a claimed outbox row.
type Message struct {
	ID       int64
	Email    Email
	Attempts int
}

// Attachment is a rendered file.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Enqueuer writes emails to the outbox.
type Enqueuer interface {
	Enqueue(ctx context.Context, e Email) error
}

// Renderer produces attachment bytes for a stored reference.
type Renderer interface {
	Render(ctx context.Context, kind AttachmentKind, ref uuid.UUID) (Attachment, error)
}
