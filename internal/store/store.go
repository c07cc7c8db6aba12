package store

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/drivescore/internal/session"
)

// SessionStore persists the session history and the all-time score.
//
// SaveSessions takes the full history but stores are append-only by session
// ID: sessions already stored are never rewritten or removed. A later
// LoadSessions returns exactly the saved history only when that history
// extends what was stored before, which is how session.Aggregator calls it.
type SessionStore interface {
	LoadSessions(ctx context.Context) ([]session.DrivingSession, error)
	SaveSessions(ctx context.Context, sessions []session.DrivingSession) error
	LoadScore(ctx context.Context) (int, error)
	SaveScore(ctx context.Context, score int) error
	Close() error
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

// Options selects and configures a SessionStore.
type Options struct {
	Driver      string
	Path        string // sqlite database or JSON file
	DatabaseURL string // postgres
}

// Open returns the store selected by opts.Driver.
func Open(ctx context.Context, opts Options) (SessionStore, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return NewSQLite(ctx, expandHome(opts.Path))
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres store requires DATABASE_URL")
		}
		return NewPostgres(ctx, opts.DatabaseURL)
	case DriverFile:
		return NewFile(expandHome(opts.Path)), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
