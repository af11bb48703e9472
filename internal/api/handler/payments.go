package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/albapepper/courtside/internal/api/respond"
	"github.com/albapepper/courtside/internal/documents"
	"github.com/albapepper/courtside/internal/metrics"
	"github.com/albapepper/courtside/internal/payments"
)

// Stripe caps webhook payloads well below this.
const maxWebhookBody = 65536

// CheckoutRequest names the payment to pay.
type CheckoutRequest struct {
	PaymentID uuid.UUID `json:"payment_id"`
}

// StartCheckout opens a hosted checkout session for an unpaid payment.
// @Summary Start checkout
// @Description Creates a Stripe Checkout session for a pending, failed or expired payment and returns its URL.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CheckoutRequest true "Payment to pay"
// @Success 200 {object} payments.Checkout
// @Failure 403 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/payments/checkout [post]
func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	if h.checkout == nil || !h.checkout.Enabled() {
		notConfigured(w, "Payments")
		return
	}
	var req CheckoutRequest
	if !respond.DecodeJSON(w, r, 4096, &req) {
		return
	}
	if req.PaymentID == uuid.Nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidRequest, "payment_id is required")
		return
	}

	billing, err := h.checkout.Billing(r.Context(), req.PaymentID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !ownsBilling(caller(r), billing.ParentEmail) {
		forbidden(w)
		return
	}

	co, err := h.checkout.Start(r.Context(), billing)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, co)
}

// InvoicePDF downloads the invoice for a payment.
// @Summary Download invoice
// @Tags payments
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {file} binary
// @Failure 403 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/payments/{id}/invoice.pdf [get]
func (h *Handler) InvoicePDF(w http.ResponseWriter, r *http.Request) {
	if h.checkout == nil || h.documents == nil {
		notConfigured(w, "Documents")
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	billing, err := h.checkout.Billing(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !ownsBilling(caller(r), billing.ParentEmail) {
		forbidden(w)
		return
	}

	pdf, err := h.documents.InvoicePDF(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond.WriteFile(w, "application/pdf", documents.InvoiceFilename(id), pdf)
}

// StripeWebhook receives signed payment events.
// @Summary Stripe webhook
// @Description Verifies the Stripe-Signature header, records the event id and applies the payment transition exactly once.
// @Tags payments
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} payments.Outcome
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/webhooks/stripe [post]
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.gateway == nil || h.webhooks == nil {
		notConfigured(w, "Payments")
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, respond.CodeInvalidRequest, "Could not read body", err.Error())
		return
	}

	ev, err := h.gateway.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		msg := "Could not decode event"
		if errors.Is(err, payments.ErrInvalidSignature) {
			msg = "Invalid signature"
		}
		h.logger.Warn("Webhook rejected", "error", err)
		respond.WriteErrorDetail(w, http.StatusBadRequest, respond.CodeInvalidRequest, msg, err.Error())
		return
	}

	out, err := h.webhooks.Handle(r.Context(), ev)
	if err != nil {
		// Non-2xx makes Stripe redeliver; the event id was rolled back.
		metrics.WebhookEvents.WithLabelValues(ev.Type, "error").Inc()
		h.logger.Error("Webhook processing failed", "event_id", ev.ID, "type", ev.Type, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeInternal, "Webhook processing failed")
		return
	}
	metrics.WebhookEvents.WithLabelValues(ev.Type, out.Result()).Inc()
	respond.WriteJSONObject(w, http.StatusOK, out)
}
