// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema migration and health checking.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/courtside/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, databaseURL string) error {
	// A plain connection: prepared statements reference tables that may not
	// exist yet on a fresh database.
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Schema returns the embedded schema DDL.
func Schema() string { return schemaSQL }

// registerPreparedStatements registers the read statements the API layers
// use. Writes stay inline next to the code that owns them.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Public listings (Postgres returns complete JSON)
		"api_teams_by_season": `SELECT COALESCE(json_agg(json_build_object(
				'id', t.id, 'name', t.name, 'season', t.season, 'division', t.division,
				'player_count', (SELECT count(*) FROM players p WHERE p.team_id = t.id)
			) ORDER BY t.name), '[]'::json)
			FROM teams t WHERE ($1::text IS NULL OR t.season = $1)`,
		"api_team_schedule": `SELECT COALESCE(json_agg(json_build_object(
				'id', e.id, 'kind', e.kind, 'title', e.title, 'opponent', e.opponent,
				'location', e.location, 'starts_at', e.starts_at, 'ends_at', e.ends_at, 'notes', e.notes
			) ORDER BY e.starts_at), '[]'::json)
			FROM schedule_events e WHERE e.team_id = $1 AND e.ends_at >= NOW()`,

		// Dashboards
		"team_coach_email": "SELECT COALESCE(coach_email, '') FROM teams WHERE id = $1",
		"player_access": `SELECT COALESCE(t.coach_email, ''),
				COALESCE(array_agg(lower(pa.email)) FILTER (WHERE pa.email IS NOT NULL), '{}')
			FROM players p
			LEFT JOIN teams t ON t.id = p.team_id
			LEFT JOIN player_parents pp ON pp.player_id = p.id
			LEFT JOIN parents pa ON pa.id = pp.parent_id
			WHERE p.id = $1
			GROUP BY t.coach_email`,
		"api_team_roster": `SELECT COALESCE(json_agg(json_build_object(
				'id', p.id, 'first_name', p.first_name, 'last_name', p.last_name,
				'dob', p.dob, 'gender', p.gender, 'jersey_number', p.jersey_number,
				'jersey_size', p.jersey_size, 'status', p.status,
				'payment_status', (SELECT pay.status FROM payments pay WHERE pay.player_id = p.id ORDER BY pay.created_at DESC LIMIT 1),
				'parents', (SELECT COALESCE(json_agg(json_build_object(
						'first_name', pa.first_name, 'last_name', pa.last_name, 'email', pa.email,
						'phone', pa.phone, 'relationship', pp.relationship, 'is_primary', pp.is_primary
					) ORDER BY pp.is_primary DESC), '[]'::json)
					FROM player_parents pp JOIN parents pa ON pa.id = pp.parent_id WHERE pp.player_id = p.id)
			) ORDER BY p.last_name, p.first_name), '[]'::json)
			FROM players p WHERE p.team_id = $1`,
		"admin_player_status_counts":  "SELECT status, count(*) FROM players GROUP BY status",
		"admin_payment_status_totals": "SELECT status, count(*), COALESCE(sum(amount), 0)::text FROM payments GROUP BY status",
		"admin_team_count":            "SELECT count(*) FROM teams",
		"admin_outbox_backlog":        "SELECT count(*) FROM outbox_emails WHERE status IN ('scheduled', 'sending')",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
