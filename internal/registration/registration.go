// Package registration handles public sign-ups. Each registered player is
// written through the roster import path in create-only mode, then gets a
// pending payment at the scheduled fee.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/albapepper/courtside/internal/config"
	"github.com/albapepper/courtside/internal/notifications"
	"github.com/albapepper/courtside/internal/payments"
	"github.com/albapepper/courtside/internal/roster"
	"github.com/albapepper/courtside/internal/validate"
)

// Contact is a parent or guardian.
type Contact struct {
	FirstName    string `json:"first_name" validate:"notblank,max=100"`
	LastName     string `json:"last_name" validate:"notblank,max=100"`
	Email        string `json:"email" validate:"required,email,max=254"`
	Phone        string `json:"phone" validate:"omitempty,max=40"`
	Relationship string `json:"relationship" validate:"omitempty,max=40"`
}

// PlayerInput is one player being registered.
type PlayerInput struct {
	FirstName    string `json:"first_name" validate:"notblank,max=100"`
	LastName     string `json:"last_name" validate:"notblank,max=100"`
	DOB          string `json:"dob" validate:"required,datetime=2006-01-02"`
	Gender       string `json:"gender" validate:"required"`
	Grade        string `json:"grade" validate:"omitempty,max=20"`
	School       string `json:"school" validate:"omitempty,max=200"`
	JerseySize   string `json:"jersey_size" validate:"omitempty,max=20"`
	MedicalNotes string `json:"medical_notes" validate:"omitempty,max=2000"`
	TeamName     string `json:"team_name" validate:"notblank,max=100"`
	Season       string `json:"season" validate:"notblank,max=20"`
	Division     string `json:"division" validate:"omitempty,max=50"`
}

// Request is the public registration form.
type Request struct {
	Parent  Contact       `json:"parent"`
	Parent2 *Contact      `json:"parent2" validate:"omitempty"`
	Players []PlayerInput `json:"players" validate:"required,min=1,max=10,dive"`
}

// PlayerResult reports one registered player.
type PlayerResult struct {
	PlayerID    uuid.UUID  `json:"player_id"`
	Name        string     `json:"name"`
	TeamName    string     `json:"team_name"`
	Season      string     `json:"season"`
	Created     bool       `json:"created"`
	Status      string     `json:"status"`
	PaymentID   *uuid.UUID `json:"payment_id,omitempty"`
	Amount      string     `json:"amount,omitempty"`
	CheckoutURL string     `json:"checkout_url,omitempty"`
}

// Result is returned to the registering parent.
type Result struct {
	ParentID uuid.UUID      `json:"parent_id"`
	Players  []PlayerResult `json:"players"`
	Total    string         `json:"total"`
	Currency string         `json:"currency"`
}

// Tx groups the writers a registration touches in one transaction.
type Tx struct {
	Roster   roster.Tx
	Payments payments.Tx
}

// Store runs registrations atomically.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// PostgresStore implements Store on one pgx transaction shared by the
// roster, payment and outbox statements.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(Tx{Roster: roster.TxFrom(tx), Payments: payments.TxFrom(tx)})
	})
}

// Checkouts starts hosted checkouts after the registration commits.
type Checkouts interface {
	Enabled() bool
	StartByID(ctx context.Context, id uuid.UUID) (*payments.Checkout, error)
}

// Service registers players.
type Service struct {
	store     Store
	fees      *config.FeeSchedule
	currency  string
	checkouts Checkouts
	club      notifications.Club
	publicURL string
	logger    *slog.Logger
}

// Options configures a Service.
type Options struct {
	Fees      *config.FeeSchedule
	Currency  string
	Club      notifications.Club
	PublicURL string
}

func NewService(store Store, checkouts Checkouts, opts Options, logger *slog.Logger) *Service {
	fees := opts.Fees
	if fees == nil {
		fees = &config.FeeSchedule{Default: config.DefaultRegistrationFee}
	}
	return &Service{
		store:     store,
		fees:      fees,
		currency:  opts.Currency,
		checkouts: checkouts,
		club:      opts.Club,
		publicURL: opts.PublicURL,
		logger:    logger,
	}
}

// Register validates the request, creates missing parents, teams and players,
// creates a pending payment for every player not already paid up and
// enqueues a confirmation email, all in one transaction. Checkout sessions
// are created after commit; a checkout failure leaves the registration in
// place with its payments pending.
func (s *Service) Register(ctx context.Context, req Request) (*Result, error) {
	rows, err := s.rows(req)
	if err != nil {
		return nil, err
	}

	res := &Result{Currency: s.currency, Players: make([]PlayerResult, 0, len(rows))}
	total := decimal.Zero

	err = s.store.InTx(ctx, func(tx Tx) error {
		res.Players = res.Players[:0]
		total = decimal.Zero

		for _, row := range rows {
			out, err := roster.ApplyRow(ctx, tx.Roster, row, roster.ApplyOptions{
				NewPlayerStatus: roster.PlayerPendingPayment,
				CreateOnly:      true,
			})
			if err != nil {
				return err
			}
			res.ParentID = out.Parent1ID
			pr := PlayerResult{
				PlayerID: out.PlayerID,
				Name:     row.PlayerFirstName + " " + row.PlayerLastName,
				TeamName: row.TeamName,
				Season:   row.Season,
				Created:  out.PlayerCreated,
				Status:   out.PlayerStatus,
			}

			if out.PlayerStatus != roster.PlayerActive {
				pay, err := s.openPayment(ctx, tx, out, row)
				if err != nil {
					return err
				}
				pr.PaymentID = &pay.ID
				pr.Amount = pay.Amount.StringFixed(2)
				total = total.Add(pay.Amount)
			}
			res.Players = append(res.Players, pr)
		}

		return tx.Payments.Enqueue(ctx, s.receivedEmail(req, res, total))
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	res.Total = total.StringFixed(2)

	s.startCheckouts(ctx, res)

	s.logger.Info("Registration received",
		"parent_id", res.ParentID, "players", len(res.Players), "total", payments.FormatAmount(total, s.currency))
	return res, nil
}

// rows converts the request to import rows and applies the roster rules.
func (s *Service) rows(req Request) ([]roster.ImportRow, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	rows := make([]roster.ImportRow, len(req.Players))
	for i, p := range req.Players {
		row := roster.ImportRow{
			Row:                 i + 1,
			PlayerFirstName:     p.FirstName,
			PlayerLastName:      p.LastName,
			PlayerDOB:           p.DOB,
			PlayerGender:        p.Gender,
			PlayerGrade:         p.Grade,
			PlayerSchool:        p.School,
			JerseySize:          p.JerseySize,
			MedicalNotes:        p.MedicalNotes,
			TeamName:            p.TeamName,
			Season:              p.Season,
			TeamDivision:        p.Division,
			Parent1FirstName:    req.Parent.FirstName,
			Parent1LastName:     req.Parent.LastName,
			Parent1Email:        req.Parent.Email,
			Parent1Phone:        req.Parent.Phone,
			Parent1Relationship: req.Parent.Relationship,
		}
		if p2 := req.Parent2; p2 != nil {
			row.Parent2FirstName = p2.FirstName
			row.Parent2LastName = p2.LastName
			row.Parent2Email = p2.Email
			row.Parent2Phone = p2.Phone
			row.Parent2Relationship = p2.Relationship
		}
		rows[i] = row
	}

	valid, rejected := roster.FilterValid(rows)
	if len(rejected) > 0 {
		verr := &validate.Error{}
		for _, e := range rejected {
			verr.Add(fmt.Sprintf("players[%d].%s", e.Row-1, e.Field), e.Message)
		}
		return nil, verr
	}
	return valid, nil
}

// openPayment reuses the player's unpaid payment or creates one at the
// scheduled fee.
func (s *Service) openPayment(ctx context.Context, tx Tx, out roster.RowOutcome, row roster.ImportRow) (*payments.Payment, error) {
	pay, err := tx.Payments.OpenForPlayer(ctx, out.PlayerID)
	if err == nil {
		return pay, nil
	}
	if !errors.Is(err, payments.ErrNotFound) {
		return nil, err
	}

	parentID := out.Parent1ID
	pay = &payments.Payment{
		PlayerID:    out.PlayerID,
		ParentID:    &parentID,
		Amount:      s.fees.Fee(row.Season, row.TeamDivision),
		Currency:    s.currency,
		Description: description(row),
		Status:      payments.StatusPending,
	}
	if err := tx.Payments.Create(ctx, pay); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return pay, nil
}

func description(row roster.ImportRow) string {
	parts := []string{"Registration fee", row.Season}
	if row.TeamDivision != "" {
		parts = append(parts, row.TeamDivision)
	}
	parts = append(parts, "-", row.PlayerFirstName, row.PlayerLastName)
	return strings.Join(parts, " ")
}

func (s *Service) receivedEmail(req Request, res *Result, total decimal.Decimal) notifications.Email {
	names := make([]string, len(res.Players))
	var link string
	for i, p := range res.Players {
		names[i] = p.Name
		if p.PaymentID != nil {
			if link == "" {
				link = fmt.Sprintf("%s/payments/%s", s.publicURL, *p.PaymentID)
			} else {
				link = s.publicURL + "/payments"
			}
		}
	}
	return notifications.RegistrationReceived(s.club, req.Parent.Email,
		req.Parent.FirstName+" "+req.Parent.LastName, names,
		payments.FormatAmount(total, s.currency), link)
}

func (s *Service) startCheckouts(ctx context.Context, res *Result) {
	if s.checkouts == nil || !s.checkouts.Enabled() {
		return
	}
	for i := range res.Players {
		p := &res.Players[i]
		if p.PaymentID == nil {
			continue
		}
		co, err := s.checkouts.StartByID(ctx, *p.PaymentID)
		if err != nil {
			s.logger.Warn("Checkout creation failed", "payment_id", *p.PaymentID, "error", err)
			continue
		}
		p.CheckoutURL = co.URL
	}
}
