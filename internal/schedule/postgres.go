package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/courtside/internal/config"
)

// PostgresStore implements Store on the schedule_events table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const eventColumns = `id, team_id, kind, title, COALESCE(opponent, ''), COALESCE(location, ''),
	starts_at, ends_at, COALESCE(notes, ''), created_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.TeamID, &e.Kind, &e.Title, &e.Opponent, &e.Location,
		&e.StartsAt, &e.EndsAt, &e.Notes, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) Insert(ctx context.Context, e *Event) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO `+config.ScheduleTable+` (team_id, kind, title, opponent, location, starts_at, ends_at, notes)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, NULLIF($8, ''))
		RETURNING id, created_at`,
		e.TeamID, e.Kind, e.Title, e.Opponent, e.Location, e.StartsAt, e.EndsAt, e.Notes,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	return scanEvent(s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM `+config.ScheduleTable+` WHERE id = $1`, id))
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+config.ScheduleTable+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Upcoming(ctx context.Context, teamID uuid.UUID, from time.Time, limit int) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+eventColumns+` FROM `+config.ScheduleTable+`
		WHERE team_id = $1 AND ends_at >= $2
		ORDER BY starts_at
		LIMIT $3`, teamID, from, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
