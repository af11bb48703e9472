package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/albapepper/courtside/internal/config"
)

// Execer is satisfied by *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Task is one housekeeping statement.
type Task struct {
	Name string
	SQL  string
}

var (
	// cleanupTasks purge rows that are only kept for auditing.
	cleanupTasks = []Task{
		{"purge_outbox", `DELETE FROM ` + config.OutboxTable + `
			WHERE status IN ('sent', 'failed')
			  AND updated_at < NOW() - INTERVAL '30 days'`},
		{"purge_webhook_events", `DELETE FROM ` + config.WebhookEventsTable + `
			WHERE received_at < NOW() - INTERVAL '90 days'`},
	}

	// expiryTasks close out abandoned checkouts. Same transition as a
	// checkout.session.expired event.
	expiryTasks = []Task{
		{"expire_pending_payments", `UPDATE ` + config.PaymentsTable + `
			SET status = 'expired', updated_at = NOW()
			WHERE status = 'pending'
			  AND updated_at < NOW() - INTERVAL '14 days'`},
	}

	// requeueTasks return emails left in 'sending' by a crashed worker.
	requeueTasks = []Task{
		{"requeue_stuck_outbox", `UPDATE ` + config.OutboxTable + `
			SET status = 'scheduled', updated_at = NOW()
			WHERE status = 'sending'
			  AND updated_at < NOW() - INTERVAL '10 minutes'`},
	}
)

// AllTasks lists every task in the order RunAll executes them.
func AllTasks() []Task {
	tasks := append([]Task{}, requeueTasks...)
	tasks = append(tasks, expiryTasks...)
	return append(tasks, cleanupTasks...)
}

// RunTasks executes tasks in order. A failing task is logged and the rest
// still run; the joined error is returned.
func RunTasks(ctx context.Context, db Execer, tasks []Task, logger *slog.Logger) (map[string]int64, error) {
	affected := make(map[string]int64, len(tasks))
	var errs []error
	for _, t := range tasks {
		start := time.Now()
		tag, err := db.Exec(ctx, t.SQL)
		dur := time.Since(start).Round(time.Millisecond)

		if err != nil {
			logger.Warn("Maintenance task failed", "task", t.Name, "duration", dur, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			continue
		}
		affected[t.Name] = tag.RowsAffected()
		if tag.RowsAffected() > 0 {
			logger.Info("Maintenance task applied", "task", t.Name, "rows", tag.RowsAffected(), "duration", dur)
		}
	}
	return affected, errors.Join(errs...)
}

// RunAll executes every task once.
func RunAll(ctx context.Context, db Execer, logger *slog.Logger) (map[string]int64, error) {
	return RunTasks(ctx, db, AllTasks(), logger)
}
