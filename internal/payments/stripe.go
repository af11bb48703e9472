package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Metadata keys stamped on every Stripe object created for a payment.
const (
	metaPaymentID = "payment_id"
	metaPlayerID  = "player_id"
)

// CheckoutRequest describes a hosted checkout for one payment.
type CheckoutRequest struct {
	Payment       Payment
	CustomerEmail string
	ProductName   string
	SuccessURL    string
	CancelURL     string
}

// Checkout is a created hosted checkout session.
type Checkout struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Event is a verified provider event reduced to what reconciliation needs.
type Event struct {
	ID            string
	Type          string
	PaymentID     *uuid.UUID
	SessionID     string
	InvoiceID     string
	PaymentStatus string
	AmountMinor   int64
	// FullyRefunded is set on charge.refunded once the whole charge has
	// been returned.
	FullyRefunded bool
}

// Gateway talks to the payment provider.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

// StripeGateway implements Gateway with Stripe Checkout.
type StripeGateway struct {
	sc            *client.API
	webhookSecret string
}

// NewStripeGateway returns nil when no secret key is configured.
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	if secretKey == "" {
		return nil
	}
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{sc: sc, webhookSecret: webhookSecret}
}

// CreateCheckout creates a payment-mode session with a single line item. The
// payment id rides along as metadata on the session, the payment intent and
// the generated invoice so every later event can be matched.
func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	meta := map[string]string{
		metaPaymentID: req.Payment.ID.String(),
		metaPlayerID:  req.Payment.PlayerID.String(),
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.Payment.ID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Payment.Currency),
				UnitAmount: stripe.Int64(MinorUnits(req.Payment.Amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.ProductName),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
		InvoiceCreation: &stripe.CheckoutSessionInvoiceCreationParams{
			Enabled: stripe.Bool(true),
			InvoiceData: &stripe.CheckoutSessionInvoiceCreationInvoiceDataParams{
				Metadata: meta,
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the fields
// of the event types the processor understands. Other types come back with
// only ID and Type set.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}

	var meta map[string]string
	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutExpired:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.SessionID = s.ID
		out.PaymentStatus = string(s.PaymentStatus)
		out.AmountMinor = s.AmountTotal
		if s.Invoice != nil {
			out.InvoiceID = s.Invoice.ID
		}
		meta = s.Metadata
	case EventInvoicePaid, EventInvoiceSucceeded, EventInvoiceFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out.InvoiceID = inv.ID
		out.AmountMinor = inv.AmountDue
		meta = inv.Metadata
	case EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(ev.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("decode charge: %w", err)
		}
		out.AmountMinor = ch.AmountRefunded
		out.FullyRefunded = ch.Refunded
		if ch.Invoice != nil {
			out.InvoiceID = ch.Invoice.ID
		}
		meta = ch.Metadata
	}

	if id, err := uuid.Parse(meta[metaPaymentID]); err == nil {
		out.PaymentID = &id
	}
	return out, nil
}
