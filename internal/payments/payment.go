// Package payments tracks registration fees: pending payments created at
// registration, Stripe Checkout sessions, and the webhook processor that
// moves payments (and their players) between states exactly once per event.
package payments

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("payment not found")
	ErrNotPayable       = errors.New("payment is not awaiting payment")
	ErrNotConfigured    = errors.New("payments are not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Payment statuses.
const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusFailed   = "failed"
	StatusExpired  = "expired"
	StatusRefunded = "refunded"
)

// transitions lists the allowed next states. Anything else is a no-op, so
// events delivered out of order cannot move a payment backwards.
var transitions = map[string][]string{
	StatusPending: {StatusPaid, StatusFailed, StatusExpired},
	StatusFailed:  {StatusPaid, StatusFailed},
	StatusExpired: {StatusPaid},
	StatusPaid:    {StatusRefunded},
}

// CanTransition reports whether a payment in from may move to to.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Payable reports whether a checkout may be started for a payment in status.
func Payable(status string) bool {
	return CanTransition(status, StatusPaid)
}

type Payment struct {
	ID                uuid.UUID
	PlayerID          uuid.UUID
	ParentID          *uuid.UUID
	Amount            decimal.Decimal
	Currency          string
	Description       string
	Status            string
	CheckoutSessionID string
	InvoiceID         string
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Billing is the denormalized view used for emails, invoices and access
// checks.
type Billing struct {
	Payment      Payment
	PlayerName   string
	PlayerStatus string
	TeamName     string
	Season       string
	ParentEmail  string
	ParentName   string
}

// MinorUnits converts an amount to the smallest currency unit.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts a smallest-unit amount back to a decimal.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FormatAmount renders an amount for people, e.g. "120.00 USD".
func FormatAmount(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s %s", amount.StringFixed(2), strings.ToUpper(currency))
}
