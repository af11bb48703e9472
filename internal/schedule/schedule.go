// Package schedule manages team events: games, practices and tournaments.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/courtside/internal/validate"
)

var ErrNotFound = errors.New("event not found")

// Event kinds.
const (
	KindGame       = "game"
	KindPractice   = "practice"
	KindTournament = "tournament"
)

type Event struct {
	ID        uuid.UUID `json:"id"`
	TeamID    uuid.UUID `json:"team_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Opponent  string    `json:"opponent,omitempty"`
	Location  string    `json:"location,omitempty"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Input is a new event as submitted by a coach.
type Input struct {
	Kind     string    `json:"kind" validate:"required,oneof=game practice tournament"`
	Title    string    `json:"title" validate:"notblank,max=200"`
	Opponent string    `json:"opponent" validate:"required_if=Kind game,max=200"`
	Location string    `json:"location" validate:"omitempty,max=200"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Notes    string    `json:"notes" validate:"omitempty,max=2000"`
}

// Store persists events.
type Store interface {
	Insert(ctx context.Context, e *Event) error
	Get(ctx context.Context, id uuid.UUID) (*Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Upcoming(ctx context.Context, teamID uuid.UUID, from time.Time, limit int) ([]Event, error)
}

// Service validates and stores events.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create validates in and adds an event to a team.
func (s *Service) Create(ctx context.Context, teamID uuid.UUID, in Input) (*Event, error) {
	in.Kind = strings.ToLower(strings.TrimSpace(in.Kind))
	in.Title = strings.TrimSpace(in.Title)
	in.Opponent = strings.TrimSpace(in.Opponent)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	e := &Event{
		TeamID:   teamID,
		Kind:     in.Kind,
		Title:    in.Title,
		Opponent: in.Opponent,
		Location: strings.TrimSpace(in.Location),
		StartsAt: in.StartsAt,
		EndsAt:   in.EndsAt,
		Notes:    strings.TrimSpace(in.Notes),
	}
	if err := s.store.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	s.logger.Info("Schedule event created",
		"event_id", e.ID, "team_id", teamID, "kind", e.Kind, "starts_at", e.StartsAt)
	return e, nil
}

// Get returns one event.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.store.Get(ctx, id)
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Schedule event deleted", "event_id", id)
	return nil
}

// Upcoming lists a team's events that end at or after from, soonest first.
func (s *Service) Upcoming(ctx context.Context, teamID uuid.UUID, from time.Time, limit int) ([]Event, error) {
	return s.store.Upcoming(ctx, teamID, from, limit)
}
