package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/drivescore/internal/braking"
	"github.com/MikeSquared-Agency/drivescore/internal/scoring"
	"github.com/MikeSquared-Agency/drivescore/internal/session"
	"github.com/MikeSquared-Agency/drivescore/internal/speeding"
)

// DefaultQueueSize is the capacity of the command queue.
const DefaultQueueSize = 256

// ErrStopped is returned once Run has exited.
var ErrStopped = errors.New("pipeline stopped")

// Publisher emits domain events, e.g. over NATS.
type Publisher interface {
	Publish(subject string, data any) error
}

// Notifier announces finished drives to humans.
type Notifier interface {
	PostSessionSummary(ctx context.Context, sess session.DrivingSession, state scoring.State) (string, error)
}

// StateCache holds the latest Snapshot for external readers.
type StateCache interface {
	Put(ctx context.Context, v any) error
}

// ScoreStore persists the all-time score.
type ScoreStore interface {
	LoadScore(ctx context.Context) (int, error)
	SaveScore(ctx context.Context, score int) error
}

type command func(ctx context.Context)

// Pipeline serializes every mutation of the detector, the session and the
// score onto a single goroutine. Callers on any goroutine submit closures to
// the queue; Run executes them in order.
type Pipeline struct {
	sessions *session.Aggregator
	scores   *scoring.Aggregator
	store    ScoreStore
	logger   *slog.Logger

	detector  *braking.Detector
	speeding  *speeding.Tracker
	publisher Publisher
	notifier  Notifier
	cache     StateCache
	now       func() time.Time

	// Timestamp of the newest accepted speed sample.
	lastSpeedTS float64
	hasSpeedTS  bool

	queue   chan command
	stopped chan struct{}
	bg      sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithDetector(d *braking.Detector) Option {
	return func(p *Pipeline) { p.detector = d }
}

func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

func WithCache(c StateCache) Option {
	return func(p *Pipeline) { p.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func WithQueueSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.queue = make(chan command, n)
		}
	}
}

// New wires the pipeline. The session aggregator is expected to use scores
// as its Scorer so that kept drives trigger a recompute.
func New(sessions *session.Aggregator, scores *scoring.Aggregator, store ScoreStore, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		sessions: sessions,
		scores:   scores,
		store:    store,
		logger:   logger,
		detector: braking.NewDetector(0, 0, 0),
		speeding: speeding.NewTracker(),
		now:      time.Now,
		queue:    make(chan command, DefaultQueueSize),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Restore seeds the score from the store and recomputes it from the loaded
// history. It must be called before Run.
func (p *Pipeline) Restore(ctx context.Context) {
	if p.store != nil {
		score, err := p.store.LoadScore(ctx)
		if err != nil {
			p.logger.Warn("failed to load score, starting at zero", "error", err)
		} else {
			p.scores.Restore(score)
		}
	}

	history := p.sessions.Sessions()
	if p.scores.Recompute(history) {
		p.saveScore(ctx, p.scores.State().AllTimeScore)
	}
	p.logger.Info("pipeline restored",
		"sessions", len(history),
		"all_time", p.scores.State().AllTimeScore,
	)
}

// Run executes queued commands until ctx is cancelled, then drains whatever
// is still queued and waits for background notifications.
func (p *Pipeline) Run(ctx context.Context) error {
	work := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			p.drain(work)
			close(p.stopped)
			p.bg.Wait()
			p.logger.Info("pipeline stopped")
			return nil
		case cmd := <-p.queue:
			cmd(work)
		}
	}
}

func (p *Pipeline) drain(ctx context.Context) {
	for {
		select {
		case cmd := <-p.queue:
			cmd(ctx)
		default:
			return
		}
	}
}

// submit enqueues cmd without waiting for it to run.
func (p *Pipeline) submit(cmd command) error {
	select {
	case <-p.stopped:
		return ErrStopped
	default:
	}
	select {
	case p.queue <- cmd:
		return nil
	case <-p.stopped:
		return ErrStopped
	}
}

// do enqueues fn and waits for it to complete.
func (p *Pipeline) do(ctx context.Context, fn command) error {
	_, err := call(ctx, p, func(c context.Context) struct{} {
		fn(c)
		return struct{}{}
	})
	return err
}

// call enqueues fn and waits for its result. The result travels over a
// buffered channel, so a caller that gives up early never shares memory
// with a command that is still queued.
func call[T any](ctx context.Context, p *Pipeline, fn func(context.Context) T) (T, error) {
	var zero T
	out := make(chan T, 1)
	cmd := func(c context.Context) { out <- fn(c) }

	select {
	case <-p.stopped:
		return zero, ErrStopped
	default:
	}
	select {
	case p.queue <- cmd:
	case <-p.stopped:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case v := <-out:
		return v, nil
	case <-p.stopped:
		select {
		case v := <-out:
			return v, nil
		default:
			return zero, ErrStopped
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
