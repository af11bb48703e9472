package roster_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/albapepper/courtside/internal/roster"
	"github.com/albapepper/courtside/internal/roster/rostertest"
)

// flakyStore fails InsertPlayer for one player name after the team and
// parents of that row were already written.
type flakyStore struct {
	*rostertest.MemoryStore
	failFirstName string
}

type flakyTx struct {
	Tx
	failFirstName string
}

func (s *flakyStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.MemoryStore.InTx(ctx, func(tx Tx) error {
		return fn(flakyTx{Tx: tx, failFirstName: s.failFirstName})
	})
}

func (t flakyTx) InsertPlayer(ctx context.Context, p *Player) error {
	if p.FirstName == t.failFirstName {
		return errors.New("unique violation")
	}
	return t.Tx.InsertPlayer(ctx, p)
}

func TestExecute_CreatesEverything(t *testing.T) {
	row := janeDoe()
	row.Parent1Relationship = "Mother"
	row.Parent2FirstName, row.Parent2LastName, row.Parent2Email = "Bob", "Doe", "bob@b.com"

	store := rostertest.NewMemoryStore()
	res, err := NewExecutor(store, discardLogger()).Execute(t.Context(), []ImportRow{row})
	require.NoError(t, err)
	require.Equal(t, EntityCounts{Created: 1}, res.Players)
	require.Equal(t, EntityCounts{Created: 2}, res.Parents)
	require.Equal(t, EntityCounts{Created: 1}, res.Teams)
	require.Equal(t, 1, res.Success)
	require.Zero(t, res.Errors)

	teams, parents, players, links := store.Counts()
	require.Equal(t, []int{1, 2, 1, 2}, []int{teams, parents, players, links})

	pl := store.Players()[0]
	require.Equal(t, PlayerRegistered, pl.Status)
	require.Equal(t, "F", pl.Gender)
	require.NotNil(t, pl.TeamID)

	got, err := store.ListParentLinks(t.Context(), pl.ID)
	require.NoError(t, err)
	var primary int
	for _, l := range got {
		if l.IsPrimary {
			primary++
			require.Equal(t, "Mother", l.Relationship)
		}
	}
	require.Equal(t, 1, primary)
}

func TestExecute_SharedTeamAndParent(t *testing.T) {
	jane := janeDoe()
	sister := janeDoe()
	sister.PlayerFirstName = "Jill"
	sister.PlayerDOB = "2015-02-03"

	res, err := NewExecutor(rostertest.NewMemoryStore(), discardLogger()).Execute(t.Context(), []ImportRow{jane, sister})
	require.NoError(t, err)
	require.Equal(t, 2, res.Players.Created)
	require.Equal(t, 1, res.Parents.Created)
	require.Equal(t, 1, res.Teams.Created)
}

func TestExecute_SecondRunUpdatesAndCountsUnchanged(t *testing.T) {
	rows := newRowFaker(3).rows(5)
	store := rostertest.NewMemoryStore()
	exec := NewExecutor(store, discardLogger())

	_, err := exec.Execute(t.Context(), rows)
	require.NoError(t, err)

	rows[0].JerseyNumber = "100"
	rows[1].Parent1Phone = "555-9999"
	res, err := exec.Execute(t.Context(), rows)
	require.NoError(t, err)
	require.Equal(t, EntityCounts{Updated: 1, Unchanged: 4}, res.Players)
	require.Equal(t, EntityCounts{Updated: 1}, res.Parents)
	require.Zero(t, res.Teams.Created)
	require.Equal(t, 5, res.Success)

	_, _, players, _ := store.Counts()
	require.Equal(t, 5, players)
}

func TestExecute_PartialFailure(t *testing.T) {
	rows := newRowFaker(11).rows(3)
	rows[1].PlayerFirstName = "Failing"
	rows[1].Parent1Email = "only-in-failed-row@example.com"
	rows[1].TeamName = "Team Only In Failed Row"

	store := &flakyStore{MemoryStore: rostertest.NewMemoryStore(), failFirstName: "Failing"}
	res, err := NewExecutor(store, discardLogger()).Execute(t.Context(), rows)
	require.NoError(t, err)
	require.Equal(t, 2, res.Success)
	require.Equal(t, 1, res.Errors)
	require.Len(t, res.RowErrors, 1)
	require.Equal(t, rows[1].Row, res.RowErrors[0].Row)
	require.Contains(t, res.RowErrors[0].Message, "unique violation")
	require.Equal(t, 2, res.Players.Created)

	// The failed row's team and parent were rolled back with it.
	_, err = store.FindParentByEmail(t.Context(), "only-in-failed-row@example.com")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.FindTeam(t.Context(), "Team Only In Failed Row", "2025")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExecute_SkipsBlockingRows(t *testing.T) {
	bad := janeDoe()
	bad.Row = 4
	bad.PlayerDOB = "05/01/2013"
	bad.PlayerGender = "?"

	store := rostertest.NewMemoryStore()
	res, err := NewExecutor(store, discardLogger()).Execute(t.Context(), []ImportRow{bad})
	require.NoError(t, err)
	require.Zero(t, res.Success)
	require.Equal(t, 1, res.Errors)
	require.Equal(t, []RowError{{Row: 4, Message: "Date of birth must be in YYYY-MM-DD format; Gender must be one of: M, F, Male, Female, Boy, Girl, X, Other, Non-binary"}}, res.RowErrors)

	_, _, players, _ := store.Counts()
	require.Zero(t, players)
}

func TestExecute_IncompleteParent2IsSkipped(t *testing.T) {
	row := janeDoe()
	row.Parent2Email = "bob@b.com"

	store := rostertest.NewMemoryStore()
	res, err := NewExecutor(store, discardLogger()).Execute(t.Context(), []ImportRow{row})
	require.NoError(t, err)
	require.Equal(t, 1, res.Success)
	require.Equal(t, 1, res.Parents.Created)

	_, err = store.FindParentByEmail(t.Context(), "bob@b.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExecute_Parent2SameEmailAsParent1(t *testing.T) {
	row := janeDoe()
	row.Parent2FirstName, row.Parent2LastName, row.Parent2Email = "Bob", "Doe", "A@b.com"

	store := rostertest.NewMemoryStore()
	res, err := NewExecutor(store, discardLogger()).Execute(t.Context(), []ImportRow{row})
	require.NoError(t, err)
	require.Equal(t, 1, res.Success)
	require.Zero(t, res.Errors)
	require.Equal(t, EntityCounts{Created: 1}, res.Parents)

	teams, parents, players, links := store.Counts()
	require.Equal(t, []int{1, 1, 1, 1}, []int{teams, parents, players, links})
	parent, err := store.FindParentByEmail(t.Context(), "a@b.com")
	require.NoError(t, err)
	require.Equal(t, "Ann", parent.FirstName)
}

func TestApplyRow_CreateOnly(t *testing.T) {
	store := seedStore(t, janeDoe())
	before := store.Players()[0]

	row := janeDoe()
	row.Parent1Phone = "555-0199"
	row.PlayerSchool = "Elsewhere Middle"
	row.TeamName = "U14 Girls"
	row.Parent2FirstName, row.Parent2LastName, row.Parent2Email = "Eve", "Stranger", "eve@example.com"

	var out RowOutcome
	err := store.InTx(t.Context(), func(tx Tx) error {
		var err error
		out, err = ApplyRow(t.Context(), tx, row, ApplyOptions{CreateOnly: true})
		return err
	})
	require.NoError(t, err)
	require.False(t, out.PlayerCreated)
	require.Nil(t, out.Parent2ID)
	require.Equal(t, *before.TeamID, out.TeamID)

	require.Equal(t, before, store.Players()[0])
	parent, err := store.FindParentByEmail(t.Context(), "a@b.com")
	require.NoError(t, err)
	require.Empty(t, parent.Phone)
	_, err = store.FindParentByEmail(t.Context(), "eve@example.com")
	require.ErrorIs(t, err, ErrNotFound)

	links, err := store.ListParentLinks(t.Context(), before.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
}

func TestApplyRow_NewPlayerStatus(t *testing.T) {
	store := rostertest.NewMemoryStore()
	var out RowOutcome
	err := store.InTx(t.Context(), func(tx Tx) error {
		var err error
		out, err = ApplyRow(t.Context(), tx, janeDoe(), ApplyOptions{NewPlayerStatus: PlayerPendingPayment})
		return err
	})
	require.NoError(t, err)
	require.True(t, out.PlayerCreated)
	require.Equal(t, PlayerPendingPayment, out.PlayerStatus)
	require.Equal(t, PlayerPendingPayment, store.Players()[0].Status)
}

func TestImportResult_Summary(t *testing.T) {
	r := ImportResult{Success: 3, Errors: 1, Players: EntityCounts{Created: 2, Updated: 1}}
	require.Equal(t,
		"success=3 errors=1 players_created=2 players_updated=1 players_unchanged=0 parents_created=0 parents_updated=0 teams_created=0 teams_updated=0",
		r.Summary())
}
