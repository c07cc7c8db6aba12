package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/drivescore/internal/session"
)

// Querier is the subset of pgx used by Postgres. Both *pgxpool.Pool and
// pgxmock pools satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS driving_sessions (
	id                  UUID PRIMARY KEY,
	position            INTEGER NOT NULL,
	date                TIMESTAMPTZ NOT NULL,
	score               INTEGER NOT NULL,
	duration            DOUBLE PRECISION NOT NULL,
	average_speed       DOUBLE PRECISION NOT NULL,
	max_speed           DOUBLE PRECISION NOT NULL,
	hard_braking_count  INTEGER NOT NULL,
	speeding_duration   DOUBLE PRECISION NOT NULL,
	distance            DOUBLE PRECISION NOT NULL DEFAULT 0,
	start_lat           DOUBLE PRECISION,
	start_lon           DOUBLE PRECISION,
	end_lat             DOUBLE PRECISION,
	end_lon             DOUBLE PRECISION,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS driver_score (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	score       INTEGER NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Postgres stores the history in a shared database.
type Postgres struct {
	db   Querier
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{db: pool, pool: pool}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresWithQuerier wraps an existing connection, e.g. a mock pool.
func NewPostgresWithQuerier(q Querier) *Postgres {
	return &Postgres{db: q}
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) LoadSessions(ctx context.Context) ([]session.DrivingSession, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, date, score, duration, average_speed, max_speed,
		       hard_braking_count, speeding_duration, distance,
		       start_lat, start_lon, end_lat, end_lon
		FROM driving_sessions
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.DrivingSession
	for rows.Next() {
		var (
			sess                               session.DrivingSession
			startLat, startLon, endLat, endLon *float64
		)
		if err := rows.Scan(&sess.ID, &sess.Date, &sess.Score, &sess.Duration, &sess.AverageSpeed, &sess.MaxSpeed,
			&sess.HardBrakingCount, &sess.SpeedingDuration, &sess.Distance,
			&startLat, &startLon, &endLat, &endLon); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sess.StartLocation = ptrLocation(startLat, startLon)
		sess.EndLocation = ptrLocation(endLat, endLon)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return sessions, nil
}

// SaveSessions appends sessions not yet stored. Stored sessions are never
// rewritten.
func (p *Postgres) SaveSessions(ctx context.Context, sessions []session.DrivingSession) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, sess := range sessions {
		startLat, startLon := locationArgs(sess.StartLocation)
		endLat, endLon := locationArgs(sess.EndLocation)
		_, err := tx.Exec(ctx, `
			INSERT INTO driving_sessions (
				id, position, date, score, duration, average_speed, max_speed,
				hard_braking_count, speeding_duration, distance,
				start_lat, start_lon, end_lat, end_lon)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO NOTHING`,
			sess.ID, i, sess.Date, sess.Score, sess.Duration, sess.AverageSpeed, sess.MaxSpeed,
			sess.HardBrakingCount, sess.SpeedingDuration, sess.Distance,
			startLat, startLon, endLat, endLon,
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *Postgres) LoadScore(ctx context.Context) (int, error) {
	var score int
	err := p.db.QueryRow(ctx, `SELECT score FROM driver_score WHERE id = 1`).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query score: %w", err)
	}
	return score, nil
}

func (p *Postgres) SaveScore(ctx context.Context, score int) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO driver_score (id, score, updated_at) VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET score = $1, updated_at = now()`,
		score,
	)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func ptrLocation(lat, lon *float64) *session.Location {
	if lat == nil || lon == nil {
		return nil
	}
	return &session.Location{Latitude: *lat, Longitude: *lon}
}
