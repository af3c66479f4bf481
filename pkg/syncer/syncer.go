package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/longbark/outpost/pkg/log"
	"github.com/longbark/outpost/pkg/metrics"
)

// JobName is the dedup key of the periodic sync job. There is never
// more than one live run per scheduler, and re-starting a scheduler is
// a no-op rather than a second job.
const JobName = "sync_work"

// Refresher is one repository's refresh operation.
type Refresher interface {
	Name() string
	Refresh(ctx context.Context) error
}

// ConnectivityChecker gates runs on network availability. A run
// deferred for lack of connectivity does not count as an attempt.
type ConnectivityChecker interface {
	Online(ctx context.Context) bool
}

// LastSyncRecorder persists the completion time of successful runs.
type LastSyncRecorder interface {
	SetLastSyncTimestamp(t time.Time) error
	LastSyncTimestamp() time.Time
}

// RunState is the state of the current or most recent scheduled run.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateRetrying  RunState = "retrying"
	StateSucceeded RunState = "succeeded"
	StateFailed    RunState = "failed"
)

// Status is a snapshot of scheduler state for logs and the status CLI.
type Status struct {
	State       RunState
	Attempt     int
	LastError   string
	LastRun     time.Time
	LastSuccess time.Time
}

// Config holds the scheduling knobs. These are configuration, not
// algorithmic constants.
type Config struct {
	// Interval is the base period between runs (default 15 minutes).
	Interval time.Duration

	// MaxRetries bounds automatic retries within one scheduled run
	// (default 3): an initial attempt plus up to MaxRetries retries,
	// then the run fails until the next period.
	MaxRetries int

	// BackoffMin seeds the exponential backoff between retries
	// (default 10 seconds).
	BackoffMin time.Duration

	// BackoffMax caps the backoff delay (default 5 minutes).
	BackoffMax time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Interval <= 0 {
		out.Interval = 15 * time.Minute
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = 3
	}
	if out.BackoffMin <= 0 {
		out.BackoffMin = 10 * time.Second
	}
	if out.BackoffMax <= 0 {
		out.BackoffMax = 5 * time.Minute
	}
	return out
}

// Scheduler runs the repositories' refresh operations on a period,
// sequentially and in the order given, with exponential backoff and a
// bounded retry budget per run. The retry counter lives only in memory:
// a process restart resets the budget.
type Scheduler struct {
	cfg          Config
	repos        []Refresher
	connectivity ConnectivityChecker
	recorder     LastSyncRecorder
	logger       zerolog.Logger

	mu      sync.Mutex
	status  Status
	started bool

	// runMu serializes runs; a tick that fires while a run is in
	// flight is dropped, not queued.
	runMu sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewScheduler creates a sync scheduler over the given repositories.
// Order matters: the dashboard aggregate is refreshed relative to the
// entities it summarizes in the order the caller passes.
func NewScheduler(cfg Config, connectivity ConnectivityChecker, recorder LastSyncRecorder, repos ...Refresher) *Scheduler {
	return &Scheduler{
		cfg:          cfg.withDefaults(),
		repos:        repos,
		connectivity: connectivity,
		recorder:     recorder,
		logger:       log.WithComponent("syncer"),
		status:       Status{State: StateIdle},
		stopCh:       make(chan struct{}),
		now:          time.Now,
	}
}

// Start launches the periodic loop. Idempotent: calling Start on a
// running scheduler does not create a second loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info().
		Str("job", JobName).
		Dur("interval", s.cfg.Interval).
		Msg("sync scheduler started")
	go s.run(ctx)
}

// Stop halts the periodic loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// First run happens at startup, not a full period later.
	s.runGuarded(ctx)

	for {
		select {
		case <-ticker.C:
			s.runGuarded(ctx)
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) runGuarded(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("sync run failed")
	}
}

// RunOnce executes a single scheduled run: connectivity gate, then the
// sequential refreshes with the bounded retry budget. The terminal
// failure of a run does not prevent the next periodic invocation.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.runMu.TryLock() {
		s.logger.Debug().Str("job", JobName).Msg("sync already in flight, skipping")
		return nil
	}
	defer s.runMu.Unlock()

	if s.connectivity != nil && !s.connectivity.Online(ctx) {
		// Deferred, not counted as an attempt.
		s.logger.Info().Msg("no connectivity, deferring sync run")
		metrics.SyncRunsTotal.WithLabelValues("deferred").Inc()
		return nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SyncDuration)

	start := s.now()
	s.setStatus(func(st *Status) {
		st.State = StateRunning
		st.Attempt = 1
		st.LastRun = start
	})

	var lastErr error
	for attempt := 1; ; attempt++ {
		s.setStatus(func(st *Status) {
			st.State = StateRunning
			st.Attempt = attempt
		})

		lastErr = s.refreshAll(ctx)
		if lastErr == nil {
			done := s.now()
			if err := s.recorder.SetLastSyncTimestamp(done); err != nil {
				s.logger.Error().Err(err).Msg("failed to persist last-sync timestamp")
			}
			metrics.SyncRunsTotal.WithLabelValues("succeeded").Inc()
			metrics.LastSyncTimestamp.Set(float64(done.Unix()))
			s.setStatus(func(st *Status) {
				st.State = StateSucceeded
				st.LastError = ""
				st.LastSuccess = done
			})
			s.logger.Info().Int("attempt", attempt).Msg("sync run succeeded")
			return nil
		}

		if ctx.Err() != nil {
			s.setStatus(func(st *Status) {
				st.State = StateFailed
				st.LastError = ctx.Err().Error()
			})
			return ctx.Err()
		}

		if attempt > s.cfg.MaxRetries {
			metrics.SyncRunsTotal.WithLabelValues("failed").Inc()
			s.setStatus(func(st *Status) {
				st.State = StateFailed
				st.LastError = lastErr.Error()
			})
			s.logger.Error().Err(lastErr).Int("attempts", attempt).Msg("sync run exhausted retry budget")
			return lastErr
		}

		delay := s.backoff(attempt)
		s.setStatus(func(st *Status) {
			st.State = StateRetrying
			st.LastError = lastErr.Error()
		})
		metrics.SyncRetriesTotal.Inc()
		s.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("sync attempt failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return lastErr
		}
	}
}

// refreshAll runs each repository refresh sequentially. The run
// succeeds only if every refresh succeeds.
func (s *Scheduler) refreshAll(ctx context.Context) error {
	for _, repo := range s.repos {
		if err := repo.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh %s: %w", repo.Name(), err)
		}
	}
	return nil
}

// backoff doubles from BackoffMin per completed attempt, capped at
// BackoffMax.
func (s *Scheduler) backoff(attempt int) time.Duration {
	delay := s.cfg.BackoffMin
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= s.cfg.BackoffMax {
			return s.cfg.BackoffMax
		}
	}
	return delay
}

func (s *Scheduler) setStatus(apply func(*Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(&s.status)
}
