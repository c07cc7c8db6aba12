package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/MikeSquared-Agency/drivescore/internal/session"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite is the default single-device store.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and migrates it
// to the latest schema.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// m is not closed: that would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

func (s *SQLite) LoadSessions(ctx context.Context) ([]session.DrivingSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date_unix_nano, score, duration, average_speed, max_speed,
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
			dateNano                           int64
			startLat, startLon, endLat, endLon sql.NullFloat64
		)
		if err := rows.Scan(&sess.ID, &dateNano, &sess.Score, &sess.Duration, &sess.AverageSpeed, &sess.MaxSpeed,
			&sess.HardBrakingCount, &sess.SpeedingDuration, &sess.Distance,
			&startLat, &startLon, &endLat, &endLon); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sess.Date = time.Unix(0, dateNano).UTC()
		sess.StartLocation = nullLocation(startLat, startLon)
		sess.EndLocation = nullLocation(endLat, endLon)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return sessions, nil
}

// SaveSessions appends sessions not yet stored. Stored sessions are never
// rewritten.
func (s *SQLite) SaveSessions(ctx context.Context, sessions []session.DrivingSession) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, sess := range sessions {
		startLat, startLon := locationArgs(sess.StartLocation)
		endLat, endLon := locationArgs(sess.EndLocation)
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO driving_sessions (
				id, position, date_unix_nano, score, duration, average_speed, max_speed,
				hard_braking_count, speeding_duration, distance,
				start_lat, start_lon, end_lat, end_lon)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID.String(), i, sess.Date.UnixNano(), sess.Score, sess.Duration, sess.AverageSpeed, sess.MaxSpeed,
			sess.HardBrakingCount, sess.SpeedingDuration, sess.Distance,
			startLat, startLon, endLat, endLon,
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLite) LoadScore(ctx context.Context) (int, error) {
	var score int
	err := s.db.QueryRowContext(ctx, `SELECT score FROM driver_score WHERE id = 1`).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query score: %w", err)
	}
	return score, nil
}

func (s *SQLite) SaveScore(ctx context.Context, score int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO driver_score (id, score, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at`,
		score, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func locationArgs(l *session.Location) (lat, lon any) {
	if l == nil {
		return nil, nil
	}
	return l.Latitude, l.Longitude
}

func nullLocation(lat, lon sql.NullFloat64) *session.Location {
	if !lat.Valid || !lon.Valid {
		return nil
	}
	return &session.Location{Latitude: lat.Float64, Longitude: lon.Float64}
}
