package payments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/courtside/internal/notifications"
)

// Reader looks payments up.
type Reader interface {
	Get(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByCheckoutSession(ctx context.Context, sessionID string) (*Payment, error)
	FindByInvoice(ctx context.Context, invoiceID string) (*Payment, error)
	// OpenForPlayer returns the newest payment for the player that can still
	// be paid.
	OpenForPlayer(ctx context.Context, playerID uuid.UUID) (*Payment, error)
	Billing(ctx context.Context, id uuid.UUID) (*Billing, error)
}

// Writer changes payments and the player state that depends on them.
// Emails enqueued through a Writer commit with the change that caused them.
type Writer interface {
	// RecordEvent adds a webhook event id to the idempotency ledger and
	// reports whether it was seen for the first time.
	RecordEvent(ctx context.Context, eventID, eventType string) (bool, error)
	Create(ctx context.Context, p *Payment) error
	SetStatus(ctx context.Context, id uuid.UUID, status string, paidAt *time.Time) error
	AttachCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error
	AttachInvoice(ctx context.Context, id uuid.UUID, invoiceID string) error
	SetPlayerStatus(ctx context.Context, playerID uuid.UUID, status string) error
	notifications.Enqueuer
}

// Tx is a unit of work.
type Tx interface {
	Reader
	Writer
}

// Store is the payment repository.
type Store interface {
	Tx
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
