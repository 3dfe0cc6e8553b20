package advisor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultRetentionTTL is how long idle sessions and thread links live.
	DefaultRetentionTTL = 7 * 24 * time.Hour
	// DefaultSweepInterval is the default interval between sweep runs.
	DefaultSweepInterval = time.Hour
)

// SweeperConfig holds configuration for the retention sweeper.
type SweeperConfig struct {
	RetentionTTL  time.Duration
	SweepInterval time.Duration
}

// Sweeper periodically evicts sessions and thread links idle beyond the
// retention TTL. An escalation whose state is swept is implicitly abandoned.
type Sweeper struct {
	sessions SessionStore
	links    ThreadLinkTable
	config   SweeperConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}

	now func() time.Time
}

// NewSweeper creates a retention sweeper over the shared session and
// thread-link state.
func NewSweeper(sessions SessionStore, links ThreadLinkTable, config SweeperConfig) *Sweeper {
	if config.RetentionTTL <= 0 {
		config.RetentionTTL = DefaultRetentionTTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}

	return &Sweeper{
		sessions: sessions,
		links:    links,
		config:   config,
		now:      time.Now,
	}
}

// Start begins the periodic sweep loop. Non-blocking.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.running = true
	s.stopChan = make(chan struct{})

	go s.run(ctx)

	slog.Info("retention sweeper started",
		"retention_ttl", s.config.RetentionTTL,
		"interval", s.config.SweepInterval)

	return nil
}

// Stop stops the sweep loop.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	close(s.stopChan)
	s.running = false

	slog.Info("retention sweeper stopped")
}

// RunOnce executes a single sweep immediately. Returns the number of
// sessions and thread links removed.
func (s *Sweeper) RunOnce() (sessions, links int) {
	cutoff := s.now().Add(-s.config.RetentionTTL)
	return s.sessions.SweepIdle(cutoff), s.links.SweepIdle(cutoff)
}

// IsRunning reports whether the sweep loop is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			sessions, links := s.RunOnce()
			if sessions > 0 || links > 0 {
				slog.Info("retention sweep completed",
					"sessions_removed", sessions,
					"links_removed", links)
			}
		}
	}
}
