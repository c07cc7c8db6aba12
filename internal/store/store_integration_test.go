//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/drivescore/internal/session"
)

func setupPostgres(t *testing.T) *Postgres {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := NewPostgres(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_SaveAndLoadSessions(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	existing, err := s.LoadSessions(ctx)
	if err != nil {
		t.Fatalf("LoadSessions failed: %v", err)
	}

	sess := session.DrivingSession{
		ID:               uuid.New(),
		Date:             time.Now().UTC().Truncate(time.Microsecond),
		Score:            90,
		Duration:         900,
		AverageSpeed:     30,
		MaxSpeed:         52,
		HardBrakingCount: 2,
		StartLocation:    &session.Location{Latitude: -6.2, Longitude: 106.8},
	}
	history := append(existing, sess)

	if err := s.SaveSessions(ctx, history); err != nil {
		t.Fatalf("SaveSessions failed: %v", err)
	}
	// Saving the same history again must not duplicate rows.
	if err := s.SaveSessions(ctx, history); err != nil {
		t.Fatalf("second SaveSessions failed: %v", err)
	}

	loaded, err := s.LoadSessions(ctx)
	if err != nil {
		t.Fatalf("LoadSessions failed: %v", err)
	}
	if len(loaded) != len(history) {
		t.Fatalf("expected %d sessions, got %d", len(history), len(loaded))
	}
	last := loaded[len(loaded)-1]
	if last.ID != sess.ID {
		t.Errorf("expected last session %s, got %s", sess.ID, last.ID)
	}
	if last.StartLocation == nil || last.EndLocation != nil {
		t.Errorf("unexpected locations: start=%v end=%v", last.StartLocation, last.EndLocation)
	}
}

func TestIntegration_Score(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	if err := s.SaveScore(ctx, 77); err != nil {
		t.Fatalf("SaveScore failed: %v", err)
	}
	score, err := s.LoadScore(ctx)
	if err != nil {
		t.Fatalf("LoadScore failed: %v", err)
	}
	if score != 77 {
		t.Errorf("expected 77, got %d", score)
	}
}
