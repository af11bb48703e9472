//go:build integration

package roster_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albapepper/courtside/internal/db/dbtest"
	. "github.com/albapepper/courtside/internal/roster"
)

func TestPostgresStore_RoundTrip(t *testing.T) {
	store := NewPostgresStore(dbtest.Start(t))
	rows := newRowFaker(21).rows(10)
	rows[0].Parent2FirstName, rows[0].Parent2LastName, rows[0].Parent2Email = "Sam", "Lee", "Sam.Lee@Example.com"

	rec := NewReconciler(store, discardLogger())
	exec := NewExecutor(store, discardLogger())

	preview, err := rec.Preview(t.Context(), rows)
	require.NoError(t, err)
	require.Equal(t, 10, preview.Summary.New)

	res, err := exec.Execute(t.Context(), rows)
	require.NoError(t, err)
	require.Equal(t, 10, res.Success, res.RowErrors)
	require.Equal(t, 11, res.Parents.Created)

	preview, err = rec.Preview(t.Context(), rows)
	require.NoError(t, err)
	require.Equal(t, PreviewSummary{Total: 10, NoChange: 10}, preview.Summary)

	rows[2].JerseyNumber = "77"
	res, err = exec.Execute(t.Context(), rows)
	require.NoError(t, err)
	require.Equal(t, EntityCounts{Updated: 1, Unchanged: 9}, res.Players)

	p, err := store.FindPlayerByExternalID(t.Context(), rows[2].PlayerExternalID)
	require.NoError(t, err)
	require.Equal(t, "77", p.JerseyNumber)
	require.Equal(t, rows[2].PlayerDOB, p.DOB)
}

func TestPostgresStore_MatchWithoutExternalID(t *testing.T) {
	store := NewPostgresStore(dbtest.Start(t))
	row := janeDoe()

	res, err := NewExecutor(store, discardLogger()).Execute(t.Context(), []ImportRow{row})
	require.NoError(t, err)
	require.Equal(t, 1, res.Success, res.RowErrors)

	row.PlayerFirstName = "jane"
	parent, err := store.FindParentByEmail(t.Context(), "A@B.COM")
	require.NoError(t, err)
	p, err := store.FindPlayerForParent(t.Context(), parent.ID, row.PlayerFirstName, row.PlayerLastName, row.PlayerDOB)
	require.NoError(t, err)
	require.Equal(t, "Jane", p.FirstName)
	require.Equal(t, PlayerRegistered, p.Status)
}
