package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"tadoif/internal/core"
	"tadoif/internal/idgen"
	"tadoif/internal/metrics"
)

// MinInterval is the shortest refresh period accepted
const MinInterval = 60 * time.Second

// ErrIntervalTooShort is returned for a period below MinInterval
var ErrIntervalTooShort = errors.New("refresh interval must be at least 60 seconds")

// Cycle stages, used as the stage label on failed cycles
const (
	StageToken   = "token"
	StageAuth    = "auth"
	StagePersist = "persist"
	StageFetch   = "fetch"
)

// State is the position of the loop within a refresh cycle
type State int32

const (
	StateIdle State = iota
	StateAuthenticating
	StateFetching
	StatePublished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateFetching:
		return "fetching"
	case StatePublished:
		return "published"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithPublishHook registers fn to be called with every newly published snapshot
func WithPublishHook(fn func(*core.Snapshot)) Option {
	return func(s *Scheduler) {
		s.onPublish = fn
	}
}

// Scheduler runs refresh cycles: rotate the token, fetch the home, publish the snapshot
type Scheduler struct {
	tokens    core.TokenStore
	auth      core.Authenticator
	fetcher   core.HomeFetcher
	store     *core.SnapshotStore
	interval  time.Duration
	state     atomic.Int32
	onPublish func(*core.Snapshot)
	logger    *slog.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(tokens core.TokenStore, auth core.Authenticator, fetcher core.HomeFetcher, store *core.SnapshotStore, interval time.Duration, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if interval < MinInterval {
		return nil, fmt.Errorf("%w: got %s", ErrIntervalTooShort, interval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		tokens:   tokens,
		auth:     auth,
		fetcher:  fetcher,
		store:    store,
		interval: interval,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns the current loop state
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(state State) {
	s.state.Store(int32(state))
}

// Interval returns the refresh period
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run performs a cycle immediately and then one per interval until ctx is done.
// A failed cycle is logged and the loop keeps going with the previous snapshot.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// RunOnce logs its own failures
	_, _ = s.RunOnce(ctx)
}

// RunOnce performs a single refresh cycle and publishes the result.
// On failure nothing is published and the previous snapshot stays current.
func (s *Scheduler) RunOnce(ctx context.Context) (*core.Snapshot, error) {
	cycleID := idgen.NewCycle()
	logger := s.logger.With("cycle_id", cycleID)
	start := time.Now()

	snapshot, stage, err := s.cycle(ctx, logger)
	metrics.RecordCycle(stage, time.Since(start), err)
	if err != nil {
		s.setState(StateFailed)
		logger.Warn("Refresh cycle failed", "stage", stage, "error", err)
		return nil, err
	}

	snapshot.CycleID = cycleID
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now()
	}
	s.store.Publish(snapshot)
	s.setState(StatePublished)
	metrics.RecordPublish(snapshot.FetchedAt, snapshot.Len())

	logger.Info("Snapshot published",
		"home_id", snapshot.HomeID,
		"zones", snapshot.Len(),
		"duration", time.Since(start),
	)

	if s.onPublish != nil {
		s.onPublish(snapshot)
	}
	return snapshot, nil
}

// cycle returns the fetched snapshot, or the failing stage and its error
func (s *Scheduler) cycle(ctx context.Context, logger *slog.Logger) (*core.Snapshot, string, error) {
	s.setState(StateAuthenticating)

	refreshToken, err := s.tokens.Load(ctx)
	if err != nil {
		return nil, StageToken, err
	}

	creds, err := s.auth.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, StageAuth, err
	}

	// The previous token is invalid from here on; persist even if ctx was cancelled meanwhile
	if err := s.tokens.Save(context.WithoutCancel(ctx), creds.RefreshToken); err != nil {
		return nil, StagePersist, fmt.Errorf("cannot write new refresh token: %w", err)
	}
	logger.Debug("Refresh token rotated")

	s.setState(StateFetching)
	snapshot, err := s.fetcher.Fetch(ctx, creds.AccessToken)
	if err != nil {
		return nil, StageFetch, err
	}
	if snapshot == nil {
		return nil, StageFetch, fmt.Errorf("%w: empty home reply", core.ErrFetch)
	}
	return snapshot, "", nil
}
