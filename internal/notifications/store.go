package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/courtside/internal/config"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Outbox inserts emails. Bind it to a pgx.Tx to enqueue atomically with the
// state change that caused the email.
type Outbox struct {
	q querier
}

// NewOutbox creates an outbox writer on a pool or transaction.
func NewOutbox(q querier) *Outbox { return &Outbox{q: q} }

// Enqueue inserts a scheduled email. The insert trigger notifies the
// outbox_enqueued channel.
func (o *Outbox) Enqueue(ctx context.Context, e Email) error {
	scheduled := e.ScheduledFor
	if scheduled.IsZero() {
		scheduled = time.Now()
	}
	_, err := o.q.Exec(ctx, `
		INSERT INTO `+config.OutboxTable+` (
			to_email, to_name, subject, text_body, html_body,
			attachment_kind, attachment_ref, status, scheduled_for
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', $8)`,
		e.To, nilEmpty(e.ToName), e.Subject, e.Text, nilEmpty(e.HTML),
		nilEmpty(string(e.AttachmentKind)), e.AttachmentRef, scheduled,
	)
	if err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

// Queue is the worker's view of the outbox.
type Queue interface {
	ClaimDue(ctx context.Context, limit int) ([]Message, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, attempts int, reason string) error
}

// PostgresQueue implements Queue on the outbox table.
type PostgresQueue struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

// NewPostgresQueue creates a queue. Messages failing maxAttempts times are
// left in the failed state.
func NewPostgresQueue(pool *pgxpool.Pool, maxAttempts int) *PostgresQueue {
	return &PostgresQueue{pool: pool, maxAttempts: max(maxAttempts, 1)}
}

// ClaimDue atomically claims a batch of due emails for sending.
// Uses FOR UPDATE SKIP LOCKED for safe concurrent dispatch.
func (q *PostgresQueue) ClaimDue(ctx context.Context, limit int) ([]Message, error) {
	rows, err := q.pool.Query(ctx, `
		UPDATE `+config.OutboxTable+`
		SET status = 'sending', attempts = attempts + 1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM `+config.OutboxTable+`
			WHERE status = 'scheduled' AND scheduled_for <= NOW()
			ORDER BY scheduled_for
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, to_email, COALESCE(to_name, ''), subject, text_body,
			COALESCE(html_body, ''), COALESCE(attachment_kind, ''), attachment_ref, attempts`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due emails: %w", err)
	}
	defer rows.Close()

	var claimed []Message
	for rows.Next() {
		var (
			m    Message
			kind string
			ref  *uuid.UUID
		)
		if err := rows.Scan(&m.ID, &m.Email.To, &m.Email.ToName, &m.Email.Subject, &m.Email.Text,
			&m.Email.HTML, &kind, &ref, &m.Attempts); err != nil {
			return nil, fmt.Errorf("scan claimed: %w", err)
		}
		m.Email.AttachmentKind = AttachmentKind(kind)
		m.Email.AttachmentRef = ref
		claimed = append(claimed, m)
	}
	return claimed, rows.Err()
}

// MarkSent marks an email as delivered.
func (q *PostgresQueue) MarkSent(ctx context.Context, id int64) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE `+config.OutboxTable+` SET status = 'sent', sent_at = NOW(), last_error = NULL, updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

// MarkFailed reschedules an email with backoff, or marks it failed once it
// has used all attempts.
func (q *PostgresQueue) MarkFailed(ctx context.Context, id int64, attempts int, reason string) error {
	if attempts >= q.maxAttempts {
		_, err := q.pool.Exec(ctx, `
			UPDATE `+config.OutboxTable+` SET status = 'failed', last_error = $2, updated_at = NOW()
			WHERE id = $1`, id, reason)
		return err
	}
	_, err := q.pool.Exec(ctx, `
		UPDATE `+config.OutboxTable+` SET status = 'scheduled', last_error = $2, scheduled_for = $3, updated_at = NOW()
		WHERE id = $1`, id, reason, NextAttempt(time.Now(), attempts))
	return err
}

func nilEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
