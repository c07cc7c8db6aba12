package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultMinDuration is the shortest drive that is kept, in seconds.
const DefaultMinDuration = 300.0

var (
	ErrAlreadyActive   = errors.New("session already active")
	ErrNoActiveSession = errors.New("no active session")
)

// Store persists the session history.
type Store interface {
	LoadSessions(ctx context.Context) ([]DrivingSession, error)
	SaveSessions(ctx context.Context, sessions []DrivingSession) error
}

// Scorer recomputes derived scores from the full history. It must not
// modify the slice it is given.
type Scorer interface {
	Recompute(history []DrivingSession) bool
}

// Aggregator owns the single active drive and the kept history.
type Aggregator struct {
	store       Store
	scorer      Scorer
	logger      *slog.Logger
	now         func() time.Time
	minDuration float64

	mu       sync.Mutex
	active   *Builder
	sessions []DrivingSession
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithMinDuration overrides the minimum kept drive length in seconds.
func WithMinDuration(seconds float64) Option {
	return func(a *Aggregator) {
		if seconds > 0 {
			a.minDuration = seconds
		}
	}
}

// NewAggregator loads the existing history from the store. A load failure
// is logged and the history starts empty.
func NewAggregator(ctx context.Context, store Store, scorer Scorer, logger *slog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:       store,
		scorer:      scorer,
		logger:      logger,
		now:         time.Now,
		minDuration: DefaultMinDuration,
	}
	for _, opt := range opts {
		opt(a)
	}

	if store != nil {
		sessions, err := store.LoadSessions(ctx)
		if err != nil {
			logger.Warn("failed to load session history, starting empty", "error", err)
		} else {
			a.sessions = sessions
		}
	}
	return a
}

// Start begins a new drive.
func (a *Aggregator) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil {
		return ErrAlreadyActive
	}
	a.active = NewBuilder(a.now())
	a.logger.Info("session started", "start", a.active.StartTime)
	return nil
}

// Active reports whether a drive is in progress.
func (a *Aggregator) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active != nil
}

func (a *Aggregator) UpdateSpeed(mph float64) error {
	return a.withActive(func(b *Builder) { b.UpdateSpeed(mph) })
}

func (a *Aggregator) UpdateLocation(loc Location) error {
	return a.withActive(func(b *Builder) { b.UpdateLocation(loc) })
}

// RecordHardBraking counts one braking event against the active drive.
func (a *Aggregator) RecordHardBraking() error {
	return a.withActive(func(b *Builder) { b.HardBrakingCount++ })
}

// RecordSpeeding adds seconds spent over the limit.
func (a *Aggregator) RecordSpeeding(seconds float64) error {
	if seconds <= 0 {
		return a.withActive(func(*Builder) {})
	}
	return a.withActive(func(b *Builder) { b.SpeedingDuration += seconds })
}

// End finalizes the active drive. Drives shorter than the minimum duration
// are discarded. Kept drives are appended to the history, persisted and
// handed to the scorer. A failed save is logged and the drive stays in the
// in-memory history. The aggregator is idle afterwards either way.
func (a *Aggregator) End(ctx context.Context) (Result, error) {
	a.mu.Lock()
	if a.active == nil {
		a.mu.Unlock()
		return Result{}, ErrNoActiveSession
	}
	sess := a.active.Build(a.now())
	a.active = nil

	if sess.Duration < a.minDuration {
		a.mu.Unlock()
		a.logger.Info("session discarded",
			"reason", string(DiscardTooShort),
			"duration", FormatDuration(sess.Duration),
		)
		return Result{Session: sess, Kept: false, Reason: DiscardTooShort}, nil
	}

	a.sessions = append(a.sessions, sess)
	history := make([]DrivingSession, len(a.sessions))
	copy(history, a.sessions)
	a.mu.Unlock()

	a.logger.Info("session kept",
		"id", sess.ID,
		"score", sess.Score,
		"duration", FormatDuration(sess.Duration),
		"hard_braking", sess.HardBrakingCount,
	)

	if a.store != nil {
		if err := a.store.SaveSessions(ctx, history); err != nil {
			a.logger.Error("failed to save sessions", "session_id", sess.ID, "error", err)
		}
	}
	if a.scorer != nil {
		a.scorer.Recompute(history)
	}

	return Result{Session: sess, Kept: true}, nil
}

// Sessions returns a copy of the kept history.
func (a *Aggregator) Sessions() []DrivingSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]DrivingSession, len(a.sessions))
	copy(out, a.sessions)
	return out
}

func (a *Aggregator) withActive(fn func(*Builder)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active == nil {
		return ErrNoActiveSession
	}
	fn(a.active)
	return nil
}
