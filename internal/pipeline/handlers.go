package pipeline

import (
	"context"
	"encoding/json"

	"github.com/MikeSquared-Agency/drivescore/internal/braking"
	"github.com/MikeSquared-Agency/drivescore/internal/hermes"
	"github.com/MikeSquared-Agency/drivescore/internal/session"
	"github.com/MikeSquared-Agency/drivescore/internal/speeding"
)

// HandleSpeedSample is the NATS handler for drivescore.sample.speed.
func (p *Pipeline) HandleSpeedSample(subject string, data []byte) {
	var evt hermes.SpeedSampleEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Warn("failed to parse speed sample", "subject", subject, "error", err)
		return
	}
	s := braking.Sample{Timestamp: evt.Timestamp, Speed: evt.Speed}
	p.enqueue(subject, func(ctx context.Context) { p.handleSpeed(ctx, s) })
}

// HandleLocationSample is the NATS handler for drivescore.sample.location.
func (p *Pipeline) HandleLocationSample(subject string, data []byte) {
	var evt hermes.LocationSampleEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Warn("failed to parse location sample", "subject", subject, "error", err)
		return
	}
	loc := session.Location{Latitude: evt.Latitude, Longitude: evt.Longitude}
	p.enqueue(subject, func(context.Context) { p.handleLocation(loc, evt.Timestamp) })
}

// HandleSpeedLimit is the NATS handler for drivescore.speedlimit.
func (p *Pipeline) HandleSpeedLimit(subject string, data []byte) {
	var evt hermes.SpeedLimitEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Warn("failed to parse speed limit", "subject", subject, "error", err)
		return
	}
	limit := speeding.Limit{Speed: evt.Speed, Unit: evt.Unit}
	p.enqueue(subject, func(context.Context) { p.applyLimit(limit) })
}

func (p *Pipeline) enqueue(subject string, cmd command) {
	if err := p.submit(cmd); err != nil {
		p.logger.Debug("dropping message", "subject", subject, "error", err)
	}
}
