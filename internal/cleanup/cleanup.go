// Package cleanup removes aged audit events on a schedule so the
// database does not grow without bound.
package cleanup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/logging"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/store"
)

const (
	// DefaultRetention is how long audit events are kept when the
	// configuration does not say otherwise.
	DefaultRetention = 90 * 24 * time.Hour

	// DefaultInterval is the sweep cadence.
	DefaultInterval = time.Hour
)

// Stats contains sweep statistics.
type Stats struct {
	TotalRuns         int
	TotalDeletedCount int64
	LastRunAt         time.Time
	LastRunDeleted    int64
}

// Sweeper periodically prunes audit events older than the retention
// window. A zero retention disables pruning entirely.
type Sweeper struct {
	store     store.Store
	retention time.Duration
	interval  time.Duration
	log       *logging.Logger
	now       func() time.Time

	mu      sync.Mutex
	ticker  *time.Ticker
	done    chan struct{}
	running bool
	stats   Stats
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithRetention overrides the retention window.
func WithRetention(d time.Duration) Option {
	return func(s *Sweeper) { s.retention = d }
}

// WithInterval overrides the sweep cadence.
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) { s.interval = d }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// NewSweeper creates a sweeper over the given store.
func NewSweeper(st store.Store, log *logging.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:     st,
		retention: DefaultRetention,
		interval:  DefaultInterval,
		log:       log,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the periodic sweep loop. It returns an error if the
// sweeper is already running. With a zero retention Start is a no-op.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("cleanup sweeper is already running")
	}
	if s.retention <= 0 {
		return nil
	}

	s.running = true
	s.ticker = time.NewTicker(s.interval)
	go s.loop(ctx)
	return nil
}

// Stop halts the sweep loop. Safe to call when never started.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.done)
}

// Stats returns a snapshot of the sweep statistics.
func (s *Sweeper) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Sweeper) loop(ctx context.Context) {
	for {
		select {
		case <-s.ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Warn("Audit sweep failed", "error", err.Error())
			}
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs a single prune pass and returns how many events were
// removed. It can be called directly, outside the loop.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.retention)

	deleted, err := s.store.PruneAuditEvents(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.stats.TotalRuns++
	s.stats.TotalDeletedCount += deleted
	s.stats.LastRunAt = s.now().UTC()
	s.stats.LastRunDeleted = deleted
	s.mu.Unlock()

	if deleted > 0 {
		s.log.Info("Pruned aged audit events",
			"deleted", deleted,
			"cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}
