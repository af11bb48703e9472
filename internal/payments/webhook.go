package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/courtside/internal/notifications"
	"github.com/albapepper/courtside/internal/roster"
)

// Handled provider event types.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventInvoicePaid       = "invoice.paid"
	EventInvoiceSucceeded  = "invoice.payment_succeeded"
	EventInvoiceFailed     = "invoice.payment_failed"
	EventChargeRefunded    = "charge.refunded"
)

// Outcome reports what handling an event did.
type Outcome struct {
	EventID   string     `json:"event_id"`
	Type      string     `json:"type"`
	Duplicate bool       `json:"duplicate"`
	Ignored   bool       `json:"ignored"`
	Applied   bool       `json:"applied"`
	PaymentID *uuid.UUID `json:"payment_id,omitempty"`
	From      string     `json:"from,omitempty"`
	To        string     `json:"to,omitempty"`
}

// Result names the outcome for logs and metrics.
func (o Outcome) Result() string {
	switch {
	case o.Duplicate:
		return "duplicate"
	case o.Applied:
		return "applied"
	default:
		return "ignored"
	}
}

// Processor applies verified provider events to payments.
type Processor struct {
	store     Store
	club      notifications.Club
	publicURL string
	logger    *slog.Logger
	now       func() time.Time
}

// NewProcessor creates a processor. publicURL prefixes the retry links in
// payment-failed emails.
func NewProcessor(store Store, club notifications.Club, publicURL string, logger *slog.Logger) *Processor {
	return &Processor{store: store, club: club, publicURL: publicURL, logger: logger, now: time.Now}
}

// Handle records the event id and applies its transition in one
// transaction. A replayed event id changes nothing.
func (p *Processor) Handle(ctx context.Context, ev *Event) (Outcome, error) {
	out := Outcome{EventID: ev.ID, Type: ev.Type}
	if ev.ID == "" {
		return out, errors.New("event has no id")
	}

	err := p.store.InTx(ctx, func(tx Tx) error {
		out = Outcome{EventID: ev.ID, Type: ev.Type}

		fresh, err := tx.RecordEvent(ctx, ev.ID, ev.Type)
		if err != nil {
			return err
		}
		if !fresh {
			out.Duplicate = true
			return nil
		}

		target := targetStatus(ev)
		if target == "" {
			out.Ignored = true
			return nil
		}

		pay, err := locate(ctx, tx, ev)
		if errors.Is(err, ErrNotFound) {
			p.logger.Warn("Webhook event matches no payment",
				"event_id", ev.ID, "type", ev.Type, "session", ev.SessionID, "invoice", ev.InvoiceID)
			out.Ignored = true
			return nil
		}
		if err != nil {
			return err
		}
		out.PaymentID = &pay.ID
		out.From = pay.Status

		if ev.InvoiceID != "" && pay.InvoiceID == "" {
			if err := tx.AttachInvoice(ctx, pay.ID, ev.InvoiceID); err != nil {
				return err
			}
		}

		if target == StatusRefunded && !fullRefund(ev, pay) {
			p.logger.Info("Partial refund recorded",
				"event_id", ev.ID, "payment_id", pay.ID, "refunded_minor", ev.AmountMinor)
			out.Ignored = true
			return nil
		}

		if !CanTransition(pay.Status, target) {
			p.logger.Info("Ignoring payment transition",
				"event_id", ev.ID, "payment_id", pay.ID, "from", pay.Status, "to", target)
			out.Ignored = true
			return nil
		}

		if err := p.apply(ctx, tx, pay, target); err != nil {
			return err
		}
		out.To = target
		out.Applied = true
		return nil
	})
	if err != nil {
		return out, fmt.Errorf("handle %s %s: %w", ev.Type, ev.ID, err)
	}

	p.logger.Info("Webhook event handled",
		"event_id", ev.ID, "type", ev.Type, "result", out.Result(), "from", out.From, "to", out.To)
	return out, nil
}

func (p *Processor) apply(ctx context.Context, tx Tx, pay *Payment, target string) error {
	var paidAt *time.Time
	if target == StatusPaid {
		now := p.now()
		paidAt = &now
	}
	if err := tx.SetStatus(ctx, pay.ID, target, paidAt); err != nil {
		return err
	}

	switch target {
	case StatusPaid:
		b, err := tx.Billing(ctx, pay.ID)
		if err != nil {
			return err
		}
		firstActivation := b.PlayerStatus != roster.PlayerActive
		if err := tx.SetPlayerStatus(ctx, pay.PlayerID, roster.PlayerActive); err != nil {
			return err
		}
		if b.ParentEmail == "" {
			return nil
		}
		amount := FormatAmount(pay.Amount, pay.Currency)
		if err := tx.Enqueue(ctx, notifications.Receipt(p.club, b.ParentEmail, b.ParentName,
			b.PlayerName, amount, pay.ID)); err != nil {
			return err
		}
		if firstActivation {
			return tx.Enqueue(ctx, notifications.Welcome(p.club, b.ParentEmail, b.ParentName,
				b.PlayerName, b.TeamName, b.Season, pay.PlayerID))
		}

	case StatusFailed:
		b, err := tx.Billing(ctx, pay.ID)
		if err != nil {
			return err
		}
		if b.PlayerStatus != roster.PlayerActive {
			if err := tx.SetPlayerStatus(ctx, pay.PlayerID, roster.PlayerPaymentFailed); err != nil {
				return err
			}
		}
		if b.ParentEmail == "" {
			return nil
		}
		return tx.Enqueue(ctx, notifications.PaymentFailed(p.club, b.ParentEmail, b.ParentName,
			b.PlayerName, FormatAmount(pay.Amount, pay.Currency), p.RetryURL(pay.ID)))
	}
	return nil
}

// RetryURL is where a parent restarts checkout for a payment.
func (p *Processor) RetryURL(id uuid.UUID) string {
	return fmt.Sprintf("%s/payments/%s", p.publicURL, id)
}

// targetStatus maps an event to the payment status it requests, or "" when
// the event carries no transition.
func targetStatus(ev *Event) string {
	switch ev.Type {
	case EventCheckoutCompleted:
		if ev.PaymentStatus == "paid" {
			return StatusPaid
		}
	case EventCheckoutExpired:
		return StatusExpired
	case EventInvoicePaid, EventInvoiceSucceeded:
		return StatusPaid
	case EventInvoiceFailed:
		return StatusFailed
	case EventChargeRefunded:
		return StatusRefunded
	}
	return ""
}

// fullRefund reports whether a refund event covers the whole payment.
func fullRefund(ev *Event, pay *Payment) bool {
	return ev.FullyRefunded || (ev.AmountMinor > 0 && ev.AmountMinor >= MinorUnits(pay.Amount))
}

// locate finds the payment an event refers to: metadata id first, then the
// checkout session, then the invoice.
func locate(ctx context.Context, tx Tx, ev *Event) (*Payment, error) {
	if ev.PaymentID != nil {
		pay, err := tx.Get(ctx, *ev.PaymentID)
		if !errors.Is(err, ErrNotFound) {
			return pay, err
		}
	}
	if ev.SessionID != "" {
		pay, err := tx.FindByCheckoutSession(ctx, ev.SessionID)
		if !errors.Is(err, ErrNotFound) {
			return pay, err
		}
	}
	if ev.InvoiceID != "" {
		return tx.FindByInvoice(ctx, ev.InvoiceID)
	}
	return nil, ErrNotFound
}
