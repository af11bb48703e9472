package schedule

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/courtside/internal/validate"
)

type memStore struct {
	events map[uuid.UUID]Event
}

func (m *memStore) Insert(_ context.Context, e *Event) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.events[e.ID] = *e
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *memStore) Upcoming(_ context.Context, teamID uuid.UUID, from time.Time, limit int) ([]Event, error) {
	var out []Event
	for _, e := range m.events {
		if e.TeamID == teamID && !e.EndsAt.Before(from) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Event) int { return a.StartsAt.Compare(b.StartsAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newService() (*Service, *memStore) {
	store := &memStore{events: map[uuid.UUID]Event{}}
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

var start = time.Date(2025, 11, 8, 10, 0, 0, 0, time.UTC)

func game() Input {
	return Input{
		Kind:     "Game",
		Title:    "League opener",
		Opponent: "Eastside Eagles",
		Location: "Main gym",
		StartsAt: start,
		EndsAt:   start.Add(90 * time.Minute),
	}
}

func TestCreate(t *testing.T) {
	svc, store := newService()
	team := uuid.New()

	e, err := svc.Create(t.Context(), team, game())
	require.NoError(t, err)
	require.Equal(t, KindGame, e.Kind)
	require.Equal(t, team, e.TeamID)
	require.Contains(t, store.events, e.ID)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"unknown kind", func(in *Input) { in.Kind = "scrimmage" }, "kind"},
		{"missing title", func(in *Input) { in.Title = "  " }, "title"},
		{"game without opponent", func(in *Input) { in.Opponent = "" }, "opponent"},
		{"ends before start", func(in *Input) { in.EndsAt = start.Add(-time.Hour) }, "ends_at"},
		{"ends at start", func(in *Input) { in.EndsAt = start }, "ends_at"},
		{"missing start", func(in *Input) { in.StartsAt = time.Time{} }, "starts_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService()
			in := game()
			tt.mutate(&in)

			_, err := svc.Create(t.Context(), uuid.New(), in)
			var verr *validate.Error
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tt.field, verr.Fields[0].Field)
			require.Empty(t, store.events)
		})
	}
}

func TestCreate_PracticeNeedsNoOpponent(t *testing.T) {
	svc, _ := newService()
	in := game()
	in.Kind, in.Opponent = KindPractice, ""

	_, err := svc.Create(t.Context(), uuid.New(), in)
	require.NoError(t, err)
}

func TestUpcomingAndDelete(t *testing.T) {
	svc, _ := newService()
	team := uuid.New()

	var ids []uuid.UUID
	for i := range 3 {
		in := game()
		in.StartsAt = start.AddDate(0, 0, 7*i)
		in.EndsAt = in.StartsAt.Add(time.Hour)
		e, err := svc.Create(t.Context(), team, in)
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	_, err := svc.Create(t.Context(), uuid.New(), game())
	require.NoError(t, err)

	got, err := svc.Upcoming(t.Context(), team, start.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, ids[1], got[0].ID)

	require.NoError(t, svc.Delete(t.Context(), ids[1]))
	require.ErrorIs(t, svc.Delete(t.Context(), ids[1]), ErrNotFound)
	_, err = svc.Get(t.Context(), ids[1])
	require.ErrorIs(t, err, ErrNotFound)
}
