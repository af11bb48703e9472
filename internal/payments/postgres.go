package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/albapepper/courtside/internal/config"
	"github.com/albapepper/courtside/internal/notifications"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the payment Store backed by Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
	pgQueries
}

// NewPostgresStore creates a store on pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, pgQueries: pgQueries{q: pool}}
}

// InTx runs fn in a database transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(TxFrom(tx))
	})
}

// TxFrom binds payment statements to an open pgx transaction.
func TxFrom(tx pgx.Tx) Tx { return pgQueries{q: tx} }

type pgQueries struct {
	q querier
}

const paymentColumns = `pay.id, pay.player_id, pay.parent_id, pay.amount::text, pay.currency, pay.description,
	pay.status, COALESCE(pay.checkout_session_id, ''), COALESCE(pay.invoice_id, ''), pay.paid_at,
	pay.created_at, pay.updated_at`

func scanPayment(row pgx.Row, extra ...any) (*Payment, error) {
	var (
		p      Payment
		amount string
	)
	dest := append([]any{&p.ID, &p.PlayerID, &p.ParentID, &amount, &p.Currency, &p.Description,
		&p.Status, &p.CheckoutSessionID, &p.InvoiceID, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt}, extra...)
	err := row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return &p, nil
}

// Get locks the row when called inside a transaction so concurrent webhook
// deliveries for one payment apply in sequence.
func (s pgQueries) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return scanPayment(s.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM `+config.PaymentsTable+` pay
		WHERE pay.id = $1 FOR UPDATE`, id))
}

func (s pgQueries) FindByCheckoutSession(ctx context.Context, sessionID string) (*Payment, error) {
	return scanPayment(s.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM `+config.PaymentsTable+` pay
		WHERE pay.checkout_session_id = $1 FOR UPDATE`, sessionID))
}

func (s pgQueries) FindByInvoice(ctx context.Context, invoiceID string) (*Payment, error) {
	return scanPayment(s.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM `+config.PaymentsTable+` pay
		WHERE pay.invoice_id = $1 FOR UPDATE`, invoiceID))
}

func (s pgQueries) OpenForPlayer(ctx context.Context, playerID uuid.UUID) (*Payment, error) {
	return scanPayment(s.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM `+config.PaymentsTable+` pay
		WHERE pay.player_id = $1 AND pay.status IN ('pending', 'failed', 'expired')
		ORDER BY pay.created_at DESC
		LIMIT 1`, playerID))
}

// Billing joins the payment with its player, team and paying parent. When
// the payment has no parent the player's primary parent is used.
func (s pgQueries) Billing(ctx context.Context, id uuid.UUID) (*Billing, error) {
	var b Billing
	p, err := scanPayment(s.q.QueryRow(ctx, `SELECT `+paymentColumns+`,
			pl.first_name || ' ' || pl.last_name, pl.status,
			COALESCE(t.name, ''), COALESCE(t.season, ''),
			COALESCE(pa.email, ''), COALESCE(pa.first_name || ' ' || pa.last_name, '')
		FROM `+config.PaymentsTable+` pay
		JOIN `+config.PlayersTable+` pl ON pl.id = pay.player_id
		LEFT JOIN `+config.TeamsTable+` t ON t.id = pl.team_id
		LEFT JOIN `+config.ParentsTable+` pa ON pa.id = COALESCE(pay.parent_id, (
			SELECT pp.parent_id FROM `+config.PlayerParentsTable+` pp
			WHERE pp.player_id = pl.id ORDER BY pp.is_primary DESC LIMIT 1))
		WHERE pay.id = $1`, id),
		&b.PlayerName, &b.PlayerStatus, &b.TeamName, &b.Season, &b.ParentEmail, &b.ParentName)
	if err != nil {
		return nil, err
	}
	b.Payment = *p
	return &b, nil
}

func (s pgQueries) RecordEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		INSERT INTO `+config.WebhookEventsTable+` (event_id, event_type) VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING`, eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s pgQueries) Create(ctx context.Context, p *Payment) error {
	if p.Status == "" {
		p.Status = StatusPending
	}
	return s.q.QueryRow(ctx, `
		INSERT INTO `+config.PaymentsTable+` (player_id, parent_id, amount, currency, description, status)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		p.PlayerID, p.ParentID, p.Amount.StringFixed(2), p.Currency, p.Description, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (s pgQueries) SetStatus(ctx context.Context, id uuid.UUID, status string, paidAt *time.Time) error {
	return s.exec(ctx, "set payment status", `
		UPDATE `+config.PaymentsTable+` SET status = $2, paid_at = COALESCE($3, paid_at), updated_at = NOW()
		WHERE id = $1`, id, status, paidAt)
}

func (s pgQueries) AttachCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	return s.exec(ctx, "attach checkout session", `
		UPDATE `+config.PaymentsTable+` SET checkout_session_id = $2, updated_at = NOW()
		WHERE id = $1`, id, sessionID)
}

func (s pgQueries) AttachInvoice(ctx context.Context, id uuid.UUID, invoiceID string) error {
	return s.exec(ctx, "attach invoice", `
		UPDATE `+config.PaymentsTable+` SET invoice_id = $2, updated_at = NOW()
		WHERE id = $1`, id, invoiceID)
}

func (s pgQueries) SetPlayerStatus(ctx context.Context, playerID uuid.UUID, status string) error {
	return s.exec(ctx, "set player status", `
		UPDATE `+config.PlayersTable+` SET status = $2, updated_at = NOW()
		WHERE id = $1`, playerID, status)
}

func (s pgQueries) Enqueue(ctx context.Context, e notifications.Email) error {
	return notifications.NewOutbox(s.q).Enqueue(ctx, e)
}

func (s pgQueries) exec(ctx context.Context, what, sql string, args ...any) error {
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
