package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/courtside/internal/config"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the roster Store backed by Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
	pgQueries
}

// NewPostgresStore creates a store on pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, pgQueries: pgQueries{q: pool}}
}

// InTx runs fn in a database transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(TxFrom(tx))
	})
}

// TxFrom binds roster reads and writes to an open pgx transaction so callers
// can combine them with their own statements.
func TxFrom(tx pgx.Tx) Tx { return pgQueries{q: tx} }

// pgQueries implements Reader and Writer on a querier.
type pgQueries struct {
	q querier
}

const teamColumns = `id, name, season, COALESCE(division, ''), COALESCE(coach_email, ''), created_at, updated_at`

func scanTeam(row pgx.Row) (*Team, error) {
	var t Team
	err := row.Scan(&t.ID, &t.Name, &t.Season, &t.Division, &t.CoachEmail, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const parentColumns = `id, email, first_name, last_name, COALESCE(phone, ''), created_at, updated_at`

func scanParent(row pgx.Row) (*Parent, error) {
	var p Parent
	err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const playerColumns = `p.id, COALESCE(p.external_id, ''), p.first_name, p.last_name, p.dob::text, p.gender,
	COALESCE(p.grade, ''), COALESCE(p.school, ''), COALESCE(p.jersey_number, ''),
	COALESCE(p.jersey_size, ''), COALESCE(p.medical_notes, ''), p.team_id, p.status,
	p.created_at, p.updated_at`

func scanPlayer(row pgx.Row) (*Player, error) {
	var p Player
	err := row.Scan(&p.ID, &p.ExternalID, &p.FirstName, &p.LastName, &p.DOB, &p.Gender,
		&p.Grade, &p.School, &p.JerseyNumber, &p.JerseySize, &p.MedicalNotes, &p.TeamID, &p.Status,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s pgQueries) FindTeam(ctx context.Context, name, season string) (*Team, error) {
	return scanTeam(s.q.QueryRow(ctx, `SELECT `+teamColumns+` FROM `+config.TeamsTable+`
		WHERE lower(name) = lower($1) AND season = $2`, name, season))
}

func (s pgQueries) FindParentByEmail(ctx context.Context, email string) (*Parent, error) {
	return scanParent(s.q.QueryRow(ctx, `SELECT `+parentColumns+` FROM `+config.ParentsTable+`
		WHERE lower(email) = lower($1)`, email))
}

func (s pgQueries) FindPlayerByExternalID(ctx context.Context, externalID string) (*Player, error) {
	return scanPlayer(s.q.QueryRow(ctx, `SELECT `+playerColumns+` FROM `+config.PlayersTable+` p
		WHERE p.external_id = $1`, externalID))
}

func (s pgQueries) FindPlayerForParent(ctx context.Context, parentID uuid.UUID, first, last, dob string) (*Player, error) {
	return scanPlayer(s.q.QueryRow(ctx, `SELECT `+playerColumns+` FROM `+config.PlayersTable+` p
		JOIN `+config.PlayerParentsTable+` pp ON pp.player_id = p.id
		WHERE pp.parent_id = $1 AND lower(p.first_name) = lower($2) AND lower(p.last_name) = lower($3)
			AND p.dob = $4::date
		ORDER BY p.created_at
		LIMIT 1`, parentID, first, last, dob))
}

func (s pgQueries) ListParentLinks(ctx context.Context, playerID uuid.UUID) ([]ParentLink, error) {
	rows, err := s.q.Query(ctx, `SELECT player_id, parent_id, COALESCE(relationship, ''), is_primary
		FROM `+config.PlayerParentsTable+` WHERE player_id = $1 ORDER BY parent_id`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list parent links: %w", err)
	}
	defer rows.Close()

	var links []ParentLink
	for rows.Next() {
		var l ParentLink
		if err := rows.Scan(&l.PlayerID, &l.ParentID, &l.Relationship, &l.IsPrimary); err != nil {
			return nil, fmt.Errorf("scan parent link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s pgQueries) InsertTeam(ctx context.Context, t *Team) error {
	return s.q.QueryRow(ctx, `
		INSERT INTO `+config.TeamsTable+` (name, season, division, coach_email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		t.Name, t.Season, nilEmpty(t.Division), nilEmpty(t.CoachEmail),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (s pgQueries) UpdateTeam(ctx context.Context, t *Team) error {
	return s.q.QueryRow(ctx, `
		UPDATE `+config.TeamsTable+` SET
			division = COALESCE($2, division),
			coach_email = COALESCE($3, coach_email),
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		t.ID, nilEmpty(t.Division), nilEmpty(t.CoachEmail),
	).Scan(&t.UpdatedAt)
}

func (s pgQueries) InsertParent(ctx context.Context, p *Parent) error {
	return s.q.QueryRow(ctx, `
		INSERT INTO `+config.ParentsTable+` (email, first_name, last_name, phone)
		VALUES (lower($1), $2, $3, $4)
		RETURNING id, email, created_at, updated_at`,
		p.Email, p.FirstName, p.LastName, nilEmpty(p.Phone),
	).Scan(&p.ID, &p.Email, &p.CreatedAt, &p.UpdatedAt)
}

func (s pgQueries) UpdateParent(ctx context.Context, p *Parent) error {
	return s.q.QueryRow(ctx, `
		UPDATE `+config.ParentsTable+` SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			phone = COALESCE($4, phone),
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, nilEmpty(p.FirstName), nilEmpty(p.LastName), nilEmpty(p.Phone),
	).Scan(&p.UpdatedAt)
}

func (s pgQueries) InsertPlayer(ctx context.Context, p *Player) error {
	return s.q.QueryRow(ctx, `
		INSERT INTO `+config.PlayersTable+` (
			external_id, first_name, last_name, dob, gender, grade, school,
			jersey_number, jersey_size, medical_notes, team_id, status
		) VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		nilEmpty(p.ExternalID), p.FirstName, p.LastName, p.DOB, p.Gender,
		nilEmpty(p.Grade), nilEmpty(p.School), nilEmpty(p.JerseyNumber),
		nilEmpty(p.JerseySize), nilEmpty(p.MedicalNotes), p.TeamID, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (s pgQueries) UpdatePlayer(ctx context.Context, p *Player) error {
	t := config.PlayersTable
	return s.q.QueryRow(ctx, `
		UPDATE `+t+` SET
			external_id = COALESCE($2, `+t+`.external_id),
			first_name = $3,
			last_name = $4,
			dob = $5::date,
			gender = $6,
			grade = COALESCE($7, `+t+`.grade),
			school = COALESCE($8, `+t+`.school),
			jersey_number = COALESCE($9, `+t+`.jersey_number),
			jersey_size = COALESCE($10, `+t+`.jersey_size),
			medical_notes = COALESCE($11, `+t+`.medical_notes),
			team_id = COALESCE($12, `+t+`.team_id),
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, nilEmpty(p.ExternalID), p.FirstName, p.LastName, p.DOB, p.Gender,
		nilEmpty(p.Grade), nilEmpty(p.School), nilEmpty(p.JerseyNumber),
		nilEmpty(p.JerseySize), nilEmpty(p.MedicalNotes), p.TeamID,
	).Scan(&p.UpdatedAt)
}

func (s pgQueries) SetPlayerStatus(ctx context.Context, playerID uuid.UUID, status string) error {
	tag, err := s.q.Exec(ctx, `UPDATE `+config.PlayersTable+` SET status = $2, updated_at = NOW() WHERE id = $1`,
		playerID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s pgQueries) UpsertLink(ctx context.Context, l ParentLink) error {
	t := config.PlayerParentsTable
	_, err := s.q.Exec(ctx, `
		INSERT INTO `+t+` (player_id, parent_id, relationship, is_primary)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id, parent_id) DO UPDATE SET
			relationship = COALESCE(EXCLUDED.relationship, `+t+`.relationship),
			is_primary = `+t+`.is_primary OR EXCLUDED.is_primary`,
		l.PlayerID, l.ParentID, nilEmpty(l.Relationship), l.IsPrimary,
	)
	return err
}

// nilEmpty maps "" to NULL.
func nilEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
