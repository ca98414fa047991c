package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zoobzio/clockz"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/payment-aggregator/internal/provider"
)

const DefaultProbeInterval = 30 * time.Second

// HealthProbe pings every adapter that implements provider.Prober so an
// unhealthy provider can recover without live traffic.
type HealthProbe struct {
	registry *Registry
	health   *HealthTracker
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	clock    clockz.Clock
}

func NewHealthProbe(registry *Registry, health *HealthTracker, logger *slog.Logger, interval time.Duration) *HealthProbe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &HealthProbe{
		registry: registry,
		health:   health,
		logger:   logger,
		interval: interval,
		timeout:  interval / 2,
		clock:    health.clock,
	}
}

func (p *HealthProbe) Start(ctx context.Context) {
	p.logger.Info("provider health probe started", "interval", p.interval)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("provider health probe stopped")
			return
		case <-ticker.C():
			p.ProbeOnce(ctx)
		}
	}
}

// ProbeOnce pings all probers concurrently and records each result.
// Adapters without a configured probe are left untouched.
func (p *HealthProbe) ProbeOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var g errgroup.Group
	for _, key := range p.registry.Keys() {
		adapter, err := p.registry.Get(key)
		if err != nil {
			continue
		}
		prober, ok := adapter.(provider.Prober)
		if !ok {
			continue
		}

		g.Go(func() error {
			start := p.clock.Now()
			err := prober.Ping(ctx)
			elapsed := p.clock.Now().Sub(start)

			switch {
			case errors.Is(err, provider.ErrProbeUnsupported):
				return nil
			case err != nil:
				if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return nil
				}
				p.health.RecordOutcome(key, Outcome{Success: false})
				p.logger.Warn("provider probe failed", "provider", key, "error", err)
			default:
				p.health.RecordOutcome(key, Outcome{Success: true, ResponseTime: elapsed, Sampled: true})
			}
			return nil
		})
	}
	_ = g.Wait()
}
