package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/courtside/internal/config"
	"github.com/albapepper/courtside/internal/notifications"
	"github.com/albapepper/courtside/internal/payments"
	"github.com/albapepper/courtside/internal/schedule"
)

// ErrNotFound is returned when the referenced record does not exist.
var ErrNotFound = errors.New("document source not found")

const welcomeScheduleLimit = 12

// Source loads document data.
type Source interface {
	Invoice(ctx context.Context, paymentID uuid.UUID) (*Invoice, error)
	WelcomeKit(ctx context.Context, playerID uuid.UUID) (*WelcomeKit, error)
}

// Service renders documents from a Source. It is the outbox's attachment
// renderer.
type Service struct {
	src  Source
	club Club
}

func NewService(src Source, club Club) *Service {
	return &Service{src: src, club: club}
}

// InvoicePDF renders the invoice for a payment.
func (s *Service) InvoicePDF(ctx context.Context, paymentID uuid.UUID) ([]byte, error) {
	inv, err := s.src.Invoice(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return RenderInvoice(s.club, *inv)
}

// WelcomePDF renders the welcome kit for a player.
func (s *Service) WelcomePDF(ctx context.Context, playerID uuid.UUID) ([]byte, error) {
	kit, err := s.src.WelcomeKit(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return RenderWelcomeKit(s.club, *kit)
}

// Render implements notifications.Renderer.
func (s *Service) Render(ctx context.Context, kind notifications.AttachmentKind, ref uuid.UUID) (notifications.Attachment, error) {
	var (
		data []byte
		name string
		err  error
	)
	switch kind {
	case notifications.AttachmentInvoice:
		data, err = s.InvoicePDF(ctx, ref)
		name = InvoiceFilename(ref)
	case notifications.AttachmentWelcome:
		data, err = s.WelcomePDF(ctx, ref)
		name = "welcome-kit.pdf"
	default:
		return notifications.Attachment{}, fmt.Errorf("unknown attachment kind %q", kind)
	}
	if err != nil {
		return notifications.Attachment{}, fmt.Errorf("render %s %s: %w", kind, ref, err)
	}
	return notifications.Attachment{Filename: name, ContentType: "application/pdf", Data: data}, nil
}

// InvoiceNumber is the short human-facing invoice number for a payment.
func InvoiceNumber(paymentID uuid.UUID) string {
	return strings.ToUpper(strings.ReplaceAll(paymentID.String(), "-", "")[:10])
}

// InvoiceFilename is the download name of a payment's invoice.
func InvoiceFilename(paymentID uuid.UUID) string {
	return "invoice-" + InvoiceNumber(paymentID) + ".pdf"
}

// InvoiceFromBilling maps a payment billing view onto an invoice.
func InvoiceFromBilling(b *payments.Billing) *Invoice {
	return &Invoice{
		Number:      InvoiceNumber(b.Payment.ID),
		IssuedAt:    b.Payment.CreatedAt,
		BillToName:  b.ParentName,
		BillToEmail: b.ParentEmail,
		PlayerName:  b.PlayerName,
		TeamName:    b.TeamName,
		Season:      b.Season,
		Description: b.Payment.Description,
		Amount:      b.Payment.Amount,
		Currency:    b.Payment.Currency,
		Status:      b.Payment.Status,
		PaidAt:      b.Payment.PaidAt,
		CheckoutRef: b.Payment.CheckoutSessionID,
	}
}

// EventLister lists a team's upcoming events.
type EventLister interface {
	Upcoming(ctx context.Context, teamID uuid.UUID, from time.Time, limit int) ([]schedule.Event, error)
}

// PostgresSource loads document data from the database.
type PostgresSource struct {
	pool     *pgxpool.Pool
	payments payments.Reader
	events   EventLister
}

func NewPostgresSource(pool *pgxpool.Pool, pays payments.Reader, events EventLister) *PostgresSource {
	return &PostgresSource{pool: pool, payments: pays, events: events}
}

func (s *PostgresSource) Invoice(ctx context.Context, paymentID uuid.UUID) (*Invoice, error) {
	b, err := s.payments.Billing(ctx, paymentID)
	if errors.Is(err, payments.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return InvoiceFromBilling(b), nil
}

func (s *PostgresSource) WelcomeKit(ctx context.Context, playerID uuid.UUID) (*WelcomeKit, error) {
	kit := WelcomeKit{GeneratedAt: time.Now()}
	var teamID *uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT p.first_name || ' ' || p.last_name, COALESCE(p.jersey_number, ''), COALESCE(p.jersey_size, ''),
			t.id, COALESCE(t.name, ''), COALESCE(t.season, ''), COALESCE(t.division, ''), COALESCE(t.coach_email, '')
		FROM `+config.PlayersTable+` p
		LEFT JOIN `+config.TeamsTable+` t ON t.id = p.team_id
		WHERE p.id = $1`, playerID,
	).Scan(&kit.PlayerName, &kit.JerseyNumber, &kit.JerseySize,
		&teamID, &kit.TeamName, &kit.Season, &kit.Division, &kit.CoachEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load welcome kit: %w", err)
	}

	if teamID != nil && s.events != nil {
		events, err := s.events.Upcoming(ctx, *teamID, kit.GeneratedAt, welcomeScheduleLimit)
		if err != nil {
			return nil, fmt.Errorf("load schedule: %w", err)
		}
		kit.Schedule = ScheduleItems(events)
	}
	return &kit, nil
}

// ScheduleItems converts team events to welcome kit rows.
func ScheduleItems(events []schedule.Event) []ScheduleItem {
	items := make([]ScheduleItem, len(events))
	for i, e := range events {
		items[i] = ScheduleItem{
			Kind:     e.Kind,
			Title:    e.Title,
			Opponent: e.Opponent,
			Location: e.Location,
			StartsAt: e.StartsAt,
			EndsAt:   e.EndsAt,
		}
	}
	return items
}
