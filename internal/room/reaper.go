package room

import (
	"context"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set"
	"go.uber.org/zap"
)

const (
	DefaultReapInterval = time.Second
	reapBatch           = 256
)

// Reaper fires room expiry from the deadline store, whether or not the
// room's actor is awake.
type Reaper struct {
	reg      *Registry
	interval time.Duration
	log      *zap.Logger

	// rooms handed to the registry whose expiry has not been handled yet
	inflight mapset.Set
}

func NewReaper(reg *Registry, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	return &Reaper{
		reg:      reg,
		interval: interval,
		log:      reg.cfg.Logger.With(zap.String("section", "reaper")),
		inflight: mapset.NewSet(),
	}
}

// Run ticks until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Tick(ctx); err != nil {
				r.log.Error("reap failed", zap.Error(err))
			}
		}
	}
}

// Tick expires every room whose deadline has passed and returns how many
// rooms it dispatched.
func (r *Reaper) Tick(ctx context.Context) (int, error) {
	rooms, err := r.reg.cfg.Deadlines.Due(ctx, r.reg.cfg.Now(), reapBatch)
	if err != nil {
		return 0, fmt.Errorf("list due rooms: %w", err)
	}

	n := 0
	for _, name := range rooms {
		if !r.inflight.Add(name) {
			continue
		}

		name := name
		r.reg.Expire(name, func() { r.inflight.Remove(name) })
		n++
	}

	if n > 0 {
		r.log.Debug("dispatched room expiry", zap.Int("rooms", n))
	}
	return n, nil
}
