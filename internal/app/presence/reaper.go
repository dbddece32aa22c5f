/*
Package presence contains the in-memory source of truth for user identity,
online/playing state, group membership, and invite inboxes.

This file defines the Reaper, the background loop that demotes stale online
users to offline. It mutates the registry only through its public Reap method,
so timer-driven and request-driven mutations share the same atomicity
guarantees, and it holds no lock while sleeping between sweeps.
*/
package presence

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"lklobby/internal/pkg/logx"
)

// Reaper periodically sweeps the registry for online users whose inactivity
// exceeds the configured threshold.
type Reaper struct {
	registry  *Registry
	interval  time.Duration
	threshold time.Duration
	logger    zerolog.Logger
}

// NewReaper constructs a Reaper sweeping registry every interval, demoting
// users inactive for longer than threshold.
func NewReaper(registry *Registry, interval, threshold time.Duration) *Reaper {
	return &Reaper{
		registry:  registry,
		interval:  interval,
		threshold: threshold,
		logger:    logx.Logger().With().Str("component", "Reaper").Logger(),
	}
}

// Run executes the sweep loop until ctx is cancelled. It is meant to be
// started once as a dedicated goroutine for the lifetime of the process.
func (rp *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(rp.interval)
	defer ticker.Stop()

	rp.logger.Info().
		Dur("interval", rp.interval).
		Dur("threshold", rp.threshold).
		Msg("Reaper started.")

	for {
		select {
		case now := <-ticker.C:
			if reaped := rp.registry.Reap(ctx, now, rp.threshold); len(reaped) > 0 {
				rp.logger.Warn().
					Strs("users", reaped).
					Msg("Demoted stale users to offline.")
			}

		case <-ctx.Done():
			rp.logger.Info().Msg("Reaper stopped.")
			return
		}
	}
}
