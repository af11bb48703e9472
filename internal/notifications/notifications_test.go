package notifications

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu      sync.Mutex
	due     []Message
	sent    []int64
	failed  map[int64]string
	claimed int
}

func (q *fakeQueue) ClaimDue(_ context.Context, limit int) ([]Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := min(limit, len(q.due))
	out := q.due[:n]
	q.due = q.due[n:]
	q.claimed += n
	return out, nil
}

func (q *fakeQueue) MarkSent(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id int64, _ int, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failed == nil {
		q.failed = map[int64]string{}
	}
	q.failed[id] = reason
	return nil
}

type fakeSender struct {
	mu       sync.Mutex
	failTo   string
	sent     []Email
	attached [][]Attachment
}

func (s *fakeSender) Send(_ context.Context, e Email, a []Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.To == s.failTo {
		return errors.New("mailbox unavailable")
	}
	s.sent = append(s.sent, e)
	s.attached = append(s.attached, a)
	return nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(_ context.Context, kind AttachmentKind, ref uuid.UUID) (Attachment, error) {
	if ref == uuid.Nil {
		return Attachment{}, errors.New("unknown record")
	}
	return Attachment{Filename: string(kind) + ".pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestDispatchBatch(t *testing.T) {
	paymentID := uuid.New()
	nilRef := uuid.Nil
	q := &fakeQueue{due: []Message{
		{ID: 1, Email: Email{To: "a@b.com", Subject: "plain"}, Attempts: 1},
		{ID: 2, Email: Email{To: "bounce@b.com", Subject: "bounces"}, Attempts: 1},
		{ID: 3, Email: Email{To: "c@b.com", AttachmentKind: AttachmentInvoice, AttachmentRef: &paymentID}, Attempts: 1},
		{ID: 4, Email: Email{To: "d@b.com", AttachmentKind: AttachmentWelcome, AttachmentRef: &nilRef}, Attempts: 2},
	}}
	s := &fakeSender{failTo: "bounce@b.com"}
	d := NewDispatcher(q, s, fakeRenderer{}, discardLogger())

	sent, failed, err := d.DispatchBatch(t.Context())
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	require.Equal(t, 2, failed)
	require.Equal(t, []int64{1, 3}, q.sent)
	require.Contains(t, q.failed[2], "mailbox unavailable")
	require.Contains(t, q.failed[4], "render welcome attachment")

	require.Empty(t, s.attached[0])
	require.Len(t, s.attached[1], 1)
	require.Equal(t, "invoice.pdf", s.attached[1][0].Filename)
}

func TestDispatchBatch_NoRenderer(t *testing.T) {
	ref := uuid.New()
	q := &fakeQueue{due: []Message{{ID: 9, Email: Email{To: "a@b.com", AttachmentKind: AttachmentInvoice, AttachmentRef: &ref}}}}
	d := NewDispatcher(q, &fakeSender{}, nil, discardLogger())
	_, failed, err := d.DispatchBatch(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, failed)
}

func TestFlush_DrainsAllBatches(t *testing.T) {
	q := &fakeQueue{}
	for i := range dispatchBatchSize*2 + 3 {
		q.due = append(q.due, Message{ID: int64(i), Email: Email{To: "x@y.com"}})
	}
	sent, failed, err := NewDispatcher(q, &fakeSender{}, nil, discardLogger()).Flush(t.Context())
	require.NoError(t, err)
	require.Equal(t, dispatchBatchSize*2+3, sent)
	require.Zero(t, failed)
}

func TestRun_WakeTriggersDispatch(t *testing.T) {
	q := &fakeQueue{due: []Message{{ID: 1, Email: Email{To: "a@b.com"}}}}
	d := NewDispatcher(q, &fakeSender{}, nil, discardLogger())
	d.interval = time.Hour

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Wake()
	d.Wake() // coalesced, must not block
	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.sent) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestNextAttempt(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		attempts int
		min, max time.Duration
	}{
		{attempts: 1, min: time.Minute, max: 72 * time.Second},
		{attempts: 2, min: 2 * time.Minute, max: 144 * time.Second},
		{attempts: 4, min: 8 * time.Minute, max: 576 * time.Second},
		{attempts: 30, min: retryMaxDelay, max: retryMaxDelay + retryMaxDelay/5},
	}
	for _, tt := range tests {
		got := NextAttempt(now, tt.attempts).Sub(now)
		require.GreaterOrEqual(t, got, tt.min, "attempts=%d", tt.attempts)
		require.LessOrEqual(t, got, tt.max, "attempts=%d", tt.attempts)
	}
}

func TestTemplates(t *testing.T) {
	club := Club{Name: "Northside Hoops", Email: "info@northside.org"}
	paymentID, playerID := uuid.New(), uuid.New()

	reg := RegistrationReceived(club, "a@b.com", "Ann", []string{"Jane", "Jill", "Joe"}, "$500.00", "https://pay.example/cs_1")
	require.Equal(t, "Registration received", reg.Subject)
	require.Contains(t, reg.Text, "Jane, Jill and Joe")
	require.Contains(t, reg.Text, "https://pay.example/cs_1")
	require.Contains(t, reg.HTML, `href="https://pay.example/cs_1"`)

	receipt := Receipt(club, "a@b.com", "Ann", "Jane Doe", "$250.00", paymentID)
	require.Equal(t, AttachmentInvoice, receipt.AttachmentKind)
	require.Equal(t, paymentID, *receipt.AttachmentRef)

	welcome := Welcome(club, "a@b.com", "Ann", "Jane Doe", "U12 Girls", "2025", playerID)
	require.Equal(t, AttachmentWelcome, welcome.AttachmentKind)
	require.Contains(t, welcome.Text, "U12 Girls roster for the 2025 season")

	failed := PaymentFailed(club, "a@b.com", "<b>Ann</b>", "Jane Doe", "$250.00", "")
	require.NotContains(t, failed.HTML, "<b>Ann</b>")
	require.Contains(t, failed.HTML, "&lt;b&gt;Ann&lt;/b&gt;")
}

func TestSendGridSender(t *testing.T) {
	require.Nil(t, NewSendGridSender("", "Club", "club@x.org"))

	s := NewSendGridSender("SG.key", "Club", "club@x.org")
	m := s.Build(Email{To: "a@b.com", ToName: "Ann", Subject: "Hi", Text: "hello", HTML: "<p>hello</p>"},
		[]Attachment{{Filename: "invoice.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}})

	require.Equal(t, "club@x.org", m.From.Address)
	require.Len(t, m.Personalizations, 1)
	require.Equal(t, "Hi", m.Personalizations[0].Subject)
	require.Equal(t, "a@b.com", m.Personalizations[0].To[0].Address)
	require.Len(t, m.Content, 2)
	require.Len(t, m.Attachments, 1)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF")), m.Attachments[0].Content)
}
