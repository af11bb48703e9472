package registration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/courtside/internal/config"
	"github.com/albapepper/courtside/internal/notifications"
	"github.com/albapepper/courtside/internal/payments"
	"github.com/albapepper/courtside/internal/roster"
	"github.com/albapepper/courtside/internal/roster/rostertest"
	"github.com/albapepper/courtside/internal/validate"
)

// fakePayments records payments and emails. Methods registration does not
// call are left to the embedded nil interface.
type fakePayments struct {
	payments.Tx
	created []payments.Payment
	emails  []notifications.Email
}

func (f *fakePayments) OpenForPlayer(_ context.Context, playerID uuid.UUID) (*payments.Payment, error) {
	for i := len(f.created) - 1; i >= 0; i-- {
		if p := f.created[i]; p.PlayerID == playerID && payments.Payable(p.Status) {
			return &p, nil
		}
	}
	return nil, payments.ErrNotFound
}

func (f *fakePayments) Create(_ context.Context, p *payments.Payment) error {
	p.ID = uuid.New()
	f.created = append(f.created, *p)
	return nil
}

func (f *fakePayments) Enqueue(_ context.Context, e notifications.Email) error {
	f.emails = append(f.emails, e)
	return nil
}

type memStore struct {
	roster   *rostertest.MemoryStore
	payments *fakePayments
}

func newMemStore() *memStore {
	return &memStore{roster: rostertest.NewMemoryStore(), payments: &fakePayments{}}
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return m.roster.InTx(ctx, func(rtx roster.Tx) error {
		return fn(Tx{Roster: rtx, Payments: m.payments})
	})
}

type fakeCheckouts struct {
	enabled bool
	err     error
	started []uuid.UUID
}

func (f *fakeCheckouts) Enabled() bool { return f.enabled }

func (f *fakeCheckouts) StartByID(_ context.Context, id uuid.UUID) (*payments.Checkout, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.started = append(f.started, id)
	return &payments.Checkout{SessionID: "cs_" + id.String(), URL: "https://pay.test/" + id.String()}, nil
}

func newService(store Store, co Checkouts) *Service {
	fees, err := config.ParseFeeSchedule([]byte(`
default: "250.00"
seasons:
  "2025":
    divisions:
      U10: "175.00"
`))
	if err != nil {
		panic(err)
	}
	return NewService(store, co, Options{
		Fees:      fees,
		Currency:  "usd",
		Club:      notifications.Club{Name: "Courtside"},
		PublicURL: "https://club.example",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func validRequest() Request {
	return Request{
		Parent: Contact{FirstName: "Ann", LastName: "Doe", Email: "Ann@Example.com", Phone: "555-0100", Relationship: "Mother"},
		Players: []PlayerInput{{
			FirstName: "Jane",
			LastName:  "Doe",
			DOB:       "2013-05-01",
			Gender:    "Girl",
			TeamName:  "U12 Girls",
			Season:    "2025",
			Division:  "U12",
		}},
	}
}

func TestRegister_CreatesPendingPlayerAndPayment(t *testing.T) {
	store := newMemStore()
	res, err := newService(store, nil).Register(t.Context(), validRequest())
	require.NoError(t, err)

	require.Len(t, res.Players, 1)
	p := res.Players[0]
	require.True(t, p.Created)
	require.Equal(t, roster.PlayerPendingPayment, p.Status)
	require.NotNil(t, p.PaymentID)
	require.Equal(t, "250.00", p.Amount)
	require.Equal(t, "250.00", res.Total)
	require.Empty(t, p.CheckoutURL)

	require.Len(t, store.payments.created, 1)
	pay := store.payments.created[0]
	require.Equal(t, payments.StatusPending, pay.Status)
	require.Equal(t, "usd", pay.Currency)
	require.Equal(t, "Registration fee 2025 U12 - Jane Doe", pay.Description)
	require.Equal(t, res.ParentID, *pay.ParentID)

	players := store.roster.Players()
	require.Len(t, players, 1)
	require.Equal(t, roster.PlayerPendingPayment, players[0].Status)
	require.Equal(t, "F", players[0].Gender)

	require.Len(t, store.payments.emails, 1)
	email := store.payments.emails[0]
	require.Equal(t, "Ann@Example.com", email.To)
	require.Contains(t, email.Text, "250.00 USD")
	require.Contains(t, email.Text, "https://club.example/payments/"+p.PaymentID.String())
}

func TestRegister_TwiceYieldsOneParentAndPlayer(t *testing.T) {
	store := newMemStore()
	svc := newService(store, nil)

	first, err := svc.Register(t.Context(), validRequest())
	require.NoError(t, err)
	second, err := svc.Register(t.Context(), validRequest())
	require.NoError(t, err)

	_, parents, players, _ := store.roster.Counts()
	require.Equal(t, 1, parents)
	require.Equal(t, 1, players)
	require.False(t, second.Players[0].Created)
	require.Equal(t, first.Players[0].PlayerID, second.Players[0].PlayerID)
	require.Equal(t, first.Players[0].PaymentID, second.Players[0].PaymentID)
	require.Len(t, store.payments.created, 1)
}

func TestRegister_LeavesExistingRecordsUntouched(t *testing.T) {
	store := newMemStore()
	svc := newService(store, nil)
	first, err := svc.Register(t.Context(), validRequest())
	require.NoError(t, err)

	req := validRequest()
	req.Parent.FirstName, req.Parent.Phone = "Mallory", "555-0199"
	req.Players[0].School = "Elsewhere Middle"
	req.Players[0].TeamName = "U14 Boys"
	req.Parent2 = &Contact{FirstName: "Eve", LastName: "Stranger", Email: "eve@example.com"}

	second, err := svc.Register(t.Context(), req)
	require.NoError(t, err)
	require.False(t, second.Players[0].Created)
	require.Equal(t, first.Players[0].PlayerID, second.Players[0].PlayerID)

	parent, err := store.roster.FindParentByEmail(t.Context(), "ann@example.com")
	require.NoError(t, err)
	require.Equal(t, "Ann", parent.FirstName)
	require.Equal(t, "555-0100", parent.Phone)

	pl := store.roster.Players()[0]
	require.Empty(t, pl.School)
	team, ok := store.roster.Team(*pl.TeamID)
	require.True(t, ok)
	require.Equal(t, "U12 Girls", team.Name)

	links, err := store.roster.ListParentLinks(t.Context(), pl.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	_, err = store.roster.FindParentByEmail(t.Context(), "eve@example.com")
	require.ErrorIs(t, err, roster.ErrNotFound)
}

func TestRegister_FeeScheduleAndSiblings(t *testing.T) {
	req := validRequest()
	req.Players = append(req.Players, PlayerInput{
		FirstName: "Jack", LastName: "Doe", DOB: "2016-02-03", Gender: "M",
		TeamName: "U10 Boys", Season: "2025", Division: "u10",
	})
	req.Parent2 = &Contact{FirstName: "Bob", LastName: "Doe", Email: "bob@example.com"}

	store := newMemStore()
	res, err := newService(store, nil).Register(t.Context(), req)
	require.NoError(t, err)
	require.Equal(t, "250.00", res.Players[0].Amount)
	require.Equal(t, "175.00", res.Players[1].Amount)
	require.Equal(t, "425.00", res.Total)

	teams, parents, players, links := store.roster.Counts()
	require.Equal(t, []int{2, 2, 2, 4}, []int{teams, parents, players, links})
	require.Contains(t, store.payments.emails[0].Text, "Jane Doe and Jack Doe")
}

func TestRegister_ActivePlayerIsNotCharged(t *testing.T) {
	store := newMemStore()
	svc := newService(store, nil)
	res, err := svc.Register(t.Context(), validRequest())
	require.NoError(t, err)

	require.NoError(t, store.roster.InTx(t.Context(), func(tx roster.Tx) error {
		return tx.SetPlayerStatus(t.Context(), res.Players[0].PlayerID, roster.PlayerActive)
	}))
	store.payments.created[0].Status = payments.StatusPaid

	again, err := svc.Register(t.Context(), validRequest())
	require.NoError(t, err)
	require.Nil(t, again.Players[0].PaymentID)
	require.Equal(t, roster.PlayerActive, again.Players[0].Status)
	require.Equal(t, "0.00", again.Total)
	require.Len(t, store.payments.created, 1)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{"no players", func(r *Request) { r.Players = nil }, "players"},
		{"bad parent email", func(r *Request) { r.Parent.Email = "nope" }, "parent.email"},
		{"blank parent name", func(r *Request) { r.Parent.FirstName = "  " }, "parent.first_name"},
		{"bad dob", func(r *Request) { r.Players[0].DOB = "05/01/2013" }, "players[0].dob"},
		{"missing team", func(r *Request) { r.Players[0].TeamName = "" }, "players[0].team_name"},
		{"incomplete parent2", func(r *Request) { r.Parent2 = &Contact{Email: "bob@example.com"} }, "parent2.first_name"},
		{"unknown gender", func(r *Request) { r.Players[0].Gender = "?" }, "players[0].player_gender"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			store := newMemStore()
			_, err := newService(store, nil).Register(t.Context(), req)

			var verr *validate.Error
			require.ErrorAs(t, err, &verr)
			fields := make([]string, len(verr.Fields))
			for i, f := range verr.Fields {
				fields[i] = f.Field
			}
			require.Contains(t, fields, tt.field)

			_, _, players, _ := store.roster.Counts()
			require.Zero(t, players)
			require.Empty(t, store.payments.emails)
		})
	}
}

func TestRegister_StartsCheckouts(t *testing.T) {
	co := &fakeCheckouts{enabled: true}
	res, err := newService(newMemStore(), co).Register(t.Context(), validRequest())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{*res.Players[0].PaymentID}, co.started)
	require.Equal(t, "https://pay.test/"+res.Players[0].PaymentID.String(), res.Players[0].CheckoutURL)
}

func TestRegister_CheckoutFailureKeepsRegistration(t *testing.T) {
	co := &fakeCheckouts{enabled: true, err: errors.New("stripe down")}
	store := newMemStore()
	res, err := newService(store, co).Register(t.Context(), validRequest())
	require.NoError(t, err)
	require.Empty(t, res.Players[0].CheckoutURL)
	require.Len(t, store.payments.created, 1)
}

func TestDescription(t *testing.T) {
	row := roster.ImportRow{PlayerFirstName: "Jane", PlayerLastName: "Doe", Season: "2025"}
	require.Equal(t, "Registration fee 2025 - Jane Doe", description(row))
}
