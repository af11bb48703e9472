package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	mu    sync.Mutex
	stmts []string
	fail  string
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stmts = append(f.stmts, sql)
	if f.fail != "" && strings.Contains(sql, f.fail) {
		return pgconn.CommandTag{}, errors.New("relation does not exist")
	}
	return pgconn.NewCommandTag("UPDATE 2"), nil
}

func (f *fakeDB) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stmts)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunAll(t *testing.T) {
	db := &fakeDB{}
	affected, err := RunAll(t.Context(), db, discardLogger())
	require.NoError(t, err)
	require.Len(t, db.stmts, len(AllTasks()))
	require.Equal(t, map[string]int64{
		"requeue_stuck_outbox":    2,
		"expire_pending_payments": 2,
		"purge_outbox":            2,
		"purge_webhook_events":    2,
	}, affected)
}

func TestRunTasks_ContinuesAfterFailure(t *testing.T) {
	db := &fakeDB{fail: "webhook_events"}
	affected, err := RunAll(t.Context(), db, discardLogger())
	require.ErrorContains(t, err, "purge_webhook_events")
	require.Len(t, db.stmts, len(AllTasks()))
	require.NotContains(t, affected, "purge_webhook_events")
	require.Contains(t, affected, "purge_outbox")
}

func TestExpiryMatchesPendingOnly(t *testing.T) {
	require.Contains(t, expiryTasks[0].SQL, "status = 'pending'")
	require.Contains(t, expiryTasks[0].SQL, "14 days")
}

func TestStart_RunsOnTicker(t *testing.T) {
	db := &fakeDB{}
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		Start(ctx, db, Config{RequeueInterval: 10 * time.Millisecond}, discardLogger())
		close(done)
	}()

	require.Eventually(t, func() bool { return db.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
