// Package listener provides a Postgres LISTEN/NOTIFY consumer that wakes the
// email dispatcher as soon as a row lands in the outbox. It holds a dedicated
// pgx connection (not from the pool) listening on the `outbox_enqueued`
// channel; the insert trigger on outbox_emails issues the notifications.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	// Channel is the notification channel raised by the outbox trigger.
	Channel          = "outbox_enqueued"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Waker is notified for every enqueued email.
type Waker interface {
	Wake()
}

// Start opens a dedicated connection and listens on the outbox channel. It
// reconnects automatically on connection loss. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, waker Waker, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, waker, logger)
		if ctx.Err() != nil {
			logger.Info("Outbox listener stopped (context cancelled)")
			return
		}

		logger.Error("Outbox listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, waker Waker, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", Channel, err)
	}
	logger.Info("Outbox listener connected", "channel", Channel)

	// Rows enqueued while disconnected are picked up by this first wake.
	waker.Wake()

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		logger.Debug("Outbox email enqueued", "email_id", notification.Payload)
		waker.Wake()
	}
}
