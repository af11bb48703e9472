package payments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// CheckoutService starts hosted checkouts for existing payments.
type CheckoutService struct {
	store     Store
	gateway   Gateway
	publicURL string
	clubName  string
	logger    *slog.Logger
}

// NewCheckoutService creates a service. A nil gateway makes every call
// return ErrNotConfigured.
func NewCheckoutService(store Store, gateway Gateway, publicURL, clubName string, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{store: store, gateway: gateway, publicURL: publicURL, clubName: clubName, logger: logger}
}

// Enabled reports whether a gateway is configured.
func (s *CheckoutService) Enabled() bool { return s.gateway != nil }

// Start creates a checkout session for a payable payment and stores its id.
func (s *CheckoutService) Start(ctx context.Context, b *Billing) (*Checkout, error) {
	if s.gateway == nil {
		return nil, ErrNotConfigured
	}
	if !Payable(b.Payment.Status) {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPayable, b.Payment.Status)
	}

	co, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		Payment:       b.Payment,
		CustomerEmail: b.ParentEmail,
		ProductName:   fmt.Sprintf("%s: %s", s.clubName, b.Payment.Description),
		SuccessURL:    fmt.Sprintf("%s/payments/%s/success", s.publicURL, b.Payment.ID),
		CancelURL:     fmt.Sprintf("%s/payments/%s", s.publicURL, b.Payment.ID),
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.AttachCheckoutSession(ctx, b.Payment.ID, co.SessionID); err != nil {
		return nil, fmt.Errorf("store checkout session: %w", err)
	}

	s.logger.Info("Checkout session created",
		"payment_id", b.Payment.ID, "session", co.SessionID, "amount", FormatAmount(b.Payment.Amount, b.Payment.Currency))
	return co, nil
}

// StartByID loads the payment and starts a checkout for it.
func (s *CheckoutService) StartByID(ctx context.Context, id uuid.UUID) (*Checkout, error) {
	b, err := s.store.Billing(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Start(ctx, b)
}

// Billing exposes the billing view for access checks.
func (s *CheckoutService) Billing(ctx context.Context, id uuid.UUID) (*Billing, error) {
	return s.store.Billing(ctx, id)
}
