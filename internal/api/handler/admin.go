package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/albapepper/courtside/internal/api/respond"
	"github.com/albapepper/courtside/internal/payments"
)

// PaymentTotal aggregates payments in one status.
type PaymentTotal struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary is the admin dashboard payload.
type Summary struct {
	Teams         int64                   `json:"teams"`
	Players       map[string]int64        `json:"players"`
	Payments      map[string]PaymentTotal `json:"payments"`
	Collected     decimal.Decimal         `json:"collected"`
	Outstanding   decimal.Decimal         `json:"outstanding"`
	OutboxBacklog int64                   `json:"outbox_backlog"`
	Currency      string                  `json:"currency"`
	GeneratedAt   time.Time               `json:"generated_at"`
}

// AdminSummary returns club-wide counts for the admin dashboard.
// @Summary Admin dashboard
// @Description Team count, players by status, payments by status with amounts, and the pending email backlog.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Summary
// @Failure 401 {object} respond.ErrorResponse
// @Failure 403 {object} respond.ErrorResponse
// @Router /api/v1/admin/summary [get]
func (h *Handler) AdminSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.summary(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, s)
}

func (h *Handler) summary(ctx context.Context) (*Summary, error) {
	s := &Summary{
		Players:     map[string]int64{},
		Payments:    map[string]PaymentTotal{},
		Collected:   decimal.Zero,
		Outstanding: decimal.Zero,
		GeneratedAt: time.Now().UTC(),
	}
	if h.cfg != nil {
		s.Currency = h.cfg.Currency
	}

	if err := h.db.QueryRow(ctx, "admin_team_count").Scan(&s.Teams); err != nil {
		return nil, err
	}
	if err := h.db.QueryRow(ctx, "admin_outbox_backlog").Scan(&s.OutboxBacklog); err != nil {
		return nil, err
	}

	rows, err := h.db.Query(ctx, "admin_player_status_counts")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		s.Players[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = h.db.Query(ctx, "admin_payment_status_totals")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int64
			sum    string
		)
		if err := rows.Scan(&status, &n, &sum); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, err
		}
		s.Payments[status] = PaymentTotal{Count: n, Amount: amount}
		switch status {
		case payments.StatusPaid:
			s.Collected = s.Collected.Add(amount)
		case payments.StatusPending, payments.StatusFailed:
			s.Outstanding = s.Outstanding.Add(amount)
		}
	}
	return s, rows.Err()
}
