package pipeline

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/MikeSquared-Agency/drivescore/internal/braking"
	"github.com/MikeSquared-Agency/drivescore/internal/hermes"
	"github.com/MikeSquared-Agency/drivescore/internal/scoring"
	"github.com/MikeSquared-Agency/drivescore/internal/session"
	"github.com/MikeSquared-Agency/drivescore/internal/speeding"
)

// Snapshot is the derived view served to presentation clients.
type Snapshot struct {
	scoring.State
	Rating        string                   `json:"rating"`
	Sessions      []session.DrivingSession `json:"sessions"`
	Active        bool                     `json:"active"`
	BrakingNow    bool                     `json:"brakingNow"`
	SpeedLimitMPH float64                  `json:"speedLimitMph,omitempty"`
}

// OnSpeedSample feeds a GPS speed reading (m/s, unix seconds).
func (p *Pipeline) OnSpeedSample(ctx context.Context, mps, ts float64) error {
	s := braking.Sample{Timestamp: ts, Speed: mps}
	return p.do(ctx, func(c context.Context) { p.handleSpeed(c, s) })
}

// OnLocationSample feeds a GPS fix to the active drive.
func (p *Pipeline) OnLocationSample(ctx context.Context, lat, lon, ts float64) error {
	loc := session.Location{Latitude: lat, Longitude: lon}
	return p.do(ctx, func(context.Context) { p.handleLocation(loc, ts) })
}

func (p *Pipeline) StartSession(ctx context.Context) error {
	startErr, err := call(ctx, p, func(c context.Context) error {
		if err := p.sessions.Start(); err != nil {
			return err
		}
		p.detector.Reset()
		p.speeding.Reset()
		p.lastSpeedTS = 0
		p.hasSpeedTS = false
		p.refreshCache(c)
		return nil
	})
	if err != nil {
		return err
	}
	return startErr
}

type endResult struct {
	res session.Result
	err error
}

// EndSession finalizes the active drive. A discarded drive is reported
// through the Result, not as an error.
func (p *Pipeline) EndSession(ctx context.Context) (session.Result, error) {
	r, err := call(ctx, p, func(c context.Context) endResult {
		res, err := p.endSession(c)
		return endResult{res: res, err: err}
	})
	if err != nil {
		return session.Result{}, err
	}
	return r.res, r.err
}

// RecordSpeeding adds externally measured seconds over the limit.
func (p *Pipeline) RecordSpeeding(ctx context.Context, seconds float64) error {
	recErr, err := call(ctx, p, func(context.Context) error {
		return p.sessions.RecordSpeeding(seconds)
	})
	if err != nil {
		return err
	}
	return recErr
}

// SetSpeedLimit replaces the limit used for speeding detection.
func (p *Pipeline) SetSpeedLimit(ctx context.Context, limit speeding.Limit) error {
	return p.do(ctx, func(context.Context) { p.applyLimit(limit) })
}

// AdjustScore applies a manual adjustment that lasts until the next kept
// drive.
func (p *Pipeline) AdjustScore(ctx context.Context, points int) (scoring.State, error) {
	return call(ctx, p, func(c context.Context) scoring.State {
		st := p.scores.AddScore(points)
		p.logger.Info("score adjusted", "points", points, "all_time", st.AllTimeScore)
		p.saveScore(c, st.AllTimeScore)
		p.publishScore(st)
		p.refreshCache(c)
		return st
	})
}

func (p *Pipeline) CurrentState(ctx context.Context) (Snapshot, error) {
	return call(ctx, p, func(context.Context) Snapshot { return p.snapshot() })
}

func (p *Pipeline) Sessions(ctx context.Context) ([]session.DrivingSession, error) {
	return call(ctx, p, func(context.Context) []session.DrivingSession { return p.sessions.Sessions() })
}

func (p *Pipeline) handleSpeed(ctx context.Context, s braking.Sample) {
	if !s.Valid() {
		p.logger.Debug("dropping invalid speed sample", "speed", s.Speed, "timestamp", s.Timestamp)
		return
	}
	if p.hasSpeedTS && s.Timestamp < p.lastSpeedTS {
		p.logger.Debug("dropping out-of-order speed sample", "timestamp", s.Timestamp, "last", p.lastSpeedTS)
		return
	}
	p.lastSpeedTS = s.Timestamp
	p.hasSpeedTS = true

	active := p.sessions.Active()
	if evt, ok := p.detector.OnSample(s); ok {
		if active {
			_ = p.sessions.RecordHardBraking()
		}
		p.logger.Info("hard braking detected", "rate", evt.Rate, "session_active", active)
		p.publish(hermes.SubjectBrakingDetected, hermes.BrakingDetectedEvent{
			Timestamp:        evt.Timestamp,
			DecelerationRate: evt.Rate,
			SessionActive:    active,
		})
	}
	if !active {
		return
	}

	mph := s.Speed * braking.MPS2MPH
	_ = p.sessions.UpdateSpeed(mph)
	if over := p.speeding.Observe(mph, s.Timestamp); over > 0 {
		_ = p.sessions.RecordSpeeding(over)
	}
}

func (p *Pipeline) handleLocation(loc session.Location, ts float64) {
	if !validLocation(loc) {
		p.logger.Debug("dropping invalid location", "lat", loc.Latitude, "lon", loc.Longitude, "timestamp", ts)
		return
	}
	if err := p.sessions.UpdateLocation(loc); err != nil && !errors.Is(err, session.ErrNoActiveSession) {
		p.logger.Warn("location update failed", "error", err)
	}
}

func (p *Pipeline) applyLimit(limit speeding.Limit) {
	p.speeding.SetLimit(limit)
	if mph, ok := p.speeding.LimitMPH(); ok {
		p.logger.Info("speed limit updated", "limit", limit.String(), "mph", mph)
	} else {
		p.logger.Info("speed limit cleared")
	}
}

func (p *Pipeline) endSession(ctx context.Context) (session.Result, error) {
	res, err := p.sessions.End(ctx)
	if err != nil {
		return res, err
	}

	if !res.Kept {
		p.publish(hermes.SubjectSessionDiscarded, hermes.SessionDiscardedEvent{
			Reason:   res.Reason,
			Duration: res.Session.Duration,
		})
		p.refreshCache(ctx)
		return res, nil
	}

	st := p.scores.State()
	p.saveScore(ctx, st.AllTimeScore)
	p.publish(hermes.SubjectSessionCompleted, hermes.SessionCompletedEvent{
		Session:     res.Session,
		Duration:    session.FormatDuration(res.Session.Duration),
		CompletedAt: p.now().UTC(),
	})
	p.publishScore(st)
	p.refreshCache(ctx)

	if p.notifier != nil {
		p.bg.Add(1)
		go func(sess session.DrivingSession, st scoring.State) {
			defer p.bg.Done()
			nctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			defer cancel()
			if _, err := p.notifier.PostSessionSummary(nctx, sess, st); err != nil {
				p.logger.Error("slack post failed", "session_id", sess.ID, "error", err)
			}
		}(res.Session, st)
	}
	return res, nil
}

func (p *Pipeline) snapshot() Snapshot {
	st := p.scores.State()
	snap := Snapshot{
		State:      st,
		Rating:     scoring.Rating(st.AllTimeScore),
		Sessions:   p.sessions.Sessions(),
		Active:     p.sessions.Active(),
		BrakingNow: p.detector.BrakingNow(unixSeconds(p.now())),
	}
	if mph, ok := p.speeding.LimitMPH(); ok {
		snap.SpeedLimitMPH = mph
	}
	return snap
}

func (p *Pipeline) saveScore(ctx context.Context, score int) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveScore(ctx, score); err != nil {
		p.logger.Error("failed to save score", "score", score, "error", err)
	}
}

func (p *Pipeline) publishScore(st scoring.State) {
	p.publish(hermes.SubjectScoreUpdated, hermes.ScoreUpdatedEvent{
		State:  st,
		Rating: scoring.Rating(st.AllTimeScore),
	})
}

func (p *Pipeline) publish(subject string, data any) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(subject, data); err != nil {
		p.logger.Error("failed to publish event", "subject", subject, "error", err)
	}
}

func (p *Pipeline) refreshCache(ctx context.Context) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Put(ctx, p.snapshot()); err != nil {
		p.logger.Warn("failed to cache state", "error", err)
	}
}

func validLocation(l session.Location) bool {
	if math.IsNaN(l.Latitude) || math.IsNaN(l.Longitude) {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
