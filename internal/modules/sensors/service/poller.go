package service

import (
	"context"
	"log/slog"
	"time"

	"smartcity-dashboard/internal/modules/sensors/feed"
	"smartcity-dashboard/internal/modules/sensors/geocode"
	"smartcity-dashboard/internal/modules/sensors/types"
)

// Publisher forwards accepted samples to an outside consumer.
type Publisher interface {
	PublishSample(sample types.Sample) error
}

// Broadcaster pushes state updates to connected clients.
type Broadcaster interface {
	Broadcast(v any)
}

// Update is the message pushed to live clients after every poll.
type Update struct {
	Type  string `json:"type"`
	State State  `json:"state"`
}

// Poller is the only writer of the dashboard history. Cycles never overlap:
// Run executes each one to completion before waiting for the next tick.
type Poller struct {
	dashboard *Dashboard
	fetcher   feed.Fetcher
	geocoder  geocode.Geocoder
	interval  time.Duration
	logger    *slog.Logger

	publisher   Publisher
	broadcaster Broadcaster
}

func NewPoller(d *Dashboard, fetcher feed.Fetcher, g geocode.Geocoder, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		dashboard: d,
		fetcher:   fetcher,
		geocoder:  g,
		interval:  interval,
		logger:    logger,
	}
}

func (p *Poller) SetPublisher(pub Publisher) {
	p.publisher = pub
}

func (p *Poller) SetBroadcaster(b Broadcaster) {
	p.broadcaster = b
}

// Run polls once immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poller started", "interval", p.interval.String())
	defer p.logger.Info("poller stopped")

	_ = p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.Poll(ctx)
		}
	}
}

// Poll runs one fetch, build and accept cycle. Failures are logged and
// reflected in the dashboard state; they are returned for callers that care.
func (p *Poller) Poll(ctx context.Context) error {
	rec, err := p.fetcher.Fetch(ctx)
	if err == nil {
		var sample types.Sample
		sample, err = BuildSample(ctx, rec, p.geocoder)
		if err == nil {
			p.accept(sample)
			return nil
		}
	}

	// Shutdown in progress; keep the last visible state.
	if ctx.Err() != nil {
		return err
	}
	p.logger.Warn("poll failed", "error", err)
	state := p.dashboard.Fail(err)
	p.broadcast(state)
	return err
}

func (p *Poller) accept(sample types.Sample) {
	state := p.dashboard.Accept(sample)
	p.logger.Debug("sample accepted",
		"timestamp", sample.Timestamp,
		"location", sample.LocationName,
	)

	if p.publisher != nil {
		if err := p.publisher.PublishSample(sample); err != nil {
			p.logger.Error("failed to publish sample", "error", err)
		}
	}
	p.broadcast(state)
}

func (p *Poller) broadcast(state State) {
	if p.broadcaster == nil {
		return
	}
	p.broadcaster.Broadcast(Update{Type: "state", State: state})
}
