package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/courtside/internal/metrics"
)

// Dispatcher drains the outbox.
type Dispatcher struct {
	queue    Queue
	sender   Sender
	renderer Renderer
	logger   *slog.Logger
	wake     chan struct{}
	interval time.Duration
}

// NewDispatcher creates a dispatcher. renderer may be nil when no message
// carries attachments.
func NewDispatcher(queue Queue, sender Sender, renderer Renderer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		sender:   sender,
		renderer: renderer,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		interval: dispatchInterval,
	}
}

// Wake asks the worker to run a batch now. Never blocks.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run sends due emails on every tick or wake-up. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Email dispatch worker started", "interval", d.interval)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-d.wake:
		case <-ctx.Done():
			d.logger.Info("Email dispatch worker stopped")
			return
		}
		sent, failed, err := d.DispatchBatch(ctx)
		if err != nil {
			d.logger.Error("dispatch error", "error", err)
		} else if sent+failed > 0 {
			d.logger.Info("dispatch batch", "sent", sent, "failed", failed)
		}
	}
}

// Flush dispatches batches until the queue has nothing due.
func (d *Dispatcher) Flush(ctx context.Context) (sent, failed int, err error) {
	for {
		s, f, err := d.DispatchBatch(ctx)
		sent, failed = sent+s, failed+f
		if err != nil || s+f == 0 {
			return sent, failed, err
		}
	}
}

// DispatchBatch claims one batch of due emails and sends each.
func (d *Dispatcher) DispatchBatch(ctx context.Context) (sent, failed int, err error) {
	claimed, err := d.queue.ClaimDue(ctx, dispatchBatchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, m := range claimed {
		if sendErr := d.deliver(ctx, m); sendErr != nil {
			d.logger.Warn("send failed", "email_id", m.ID, "to", m.Email.To, "attempt", m.Attempts, "error", sendErr)
			if err := d.queue.MarkFailed(ctx, m.ID, m.Attempts, sendErr.Error()); err != nil {
				d.logger.Error("mark failed", "email_id", m.ID, "error", err)
			}
			metrics.OutboxDeliveries.WithLabelValues("failed").Inc()
			failed++
			continue
		}
		if err := d.queue.MarkSent(ctx, m.ID); err != nil {
			d.logger.Error("mark sent", "email_id", m.ID, "error", err)
		}
		metrics.OutboxDeliveries.WithLabelValues("sent").Inc()
		sent++
	}
	return sent, failed, nil
}

func (d *Dispatcher) deliver(ctx context.Context, m Message) error {
	var attachments []Attachment
	if m.Email.AttachmentKind != AttachmentNone && m.Email.AttachmentRef != nil {
		if d.renderer == nil {
			return fmt.Errorf("no renderer for %s attachment", m.Email.AttachmentKind)
		}
		a, err := d.renderer.Render(ctx, m.Email.AttachmentKind, *m.Email.AttachmentRef)
		if err != nil {
			return fmt.Errorf("render %s attachment: %w", m.Email.AttachmentKind, err)
		}
		attachments = append(attachments, a)
	}
	return d.sender.Send(ctx, m.Email, attachments)
}
