// Package service provides the session registry and one-shot scoring
// operations behind the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	repository "github.com/okian/tqi/internal/adapters/repository"
	"github.com/okian/tqi/internal/domain/aggregate"
	"github.com/okian/tqi/internal/domain/model"
	"github.com/okian/tqi/internal/domain/tqi"
	"github.com/okian/tqi/internal/domain/types"
	"github.com/okian/tqi/pkg/logger"
	"github.com/okian/tqi/pkg/metrics"
)

// Service owns the live sessions and the shared engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine *tqi.Engine
	store  repository.Store[*Session]

	// Configuration
	defaults       Params
	histogramWidth int
	sweepWorkers   int
	maxSweepRuns   int
	maxSessions    int
	maxPlanCount   int
	maxStaffAge    int
	seed           int64
	seeded         bool
	seq            atomic.Int64

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEngine sets the scoring engine shared by every session.
func WithEngine(e *tqi.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithStore sets the session store. Without it Start creates a MemoryStore.
func WithStore(st repository.Store[*Session]) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithDefaults sets the parameters new sessions start from.
func WithDefaults(p Params) Option {
	return func(s *Service) {
		s.defaults = p
	}
}

// WithHistogramWidth sets the age histogram bucket width in years.
func WithHistogramWidth(width int) Option {
	return func(s *Service) {
		if width > 0 {
			s.histogramWidth = width
		}
	}
}

// WithSweepWorkers sets the number of replicates computed in parallel.
func WithSweepWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sweepWorkers = n
		}
	}
}

// WithMaxSweepRuns caps the replicates a single sweep may request.
func WithMaxSweepRuns(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSweepRuns = n
		}
	}
}

// WithMaxSessions caps the live sessions held by the default store.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithMaxPlanCount caps the hires a single plan may request.
func WithMaxPlanCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPlanCount = n
		}
	}
}

// WithMaxStaffAge rejects rosters holding anyone older than age.
func WithMaxStaffAge(age int) Option {
	return func(s *Service) {
		if age > 0 {
			s.maxStaffAge = age
		}
	}
}

// WithSeed makes session and one-shot seeds deterministic: the n-th seed
// handed out is seed+n.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
		s.seeded = true
	}
}

// DefaultParams are the reference calibration: hire nobody, aim for a mean
// age of 38 with an 8 year spread and 30% graduate and senior rates, and
// weigh the three sub-scores 40/30/30.
func DefaultParams() Params {
	return Params{
		Plan:    types.HiringPlan{AgeWeights: [types.AgeBracketCount]float64{25, 25, 25, 25}},
		Target:  types.TargetProfile{IdealAge: 38, IdealSpread: 8, TargetGraduateRate: 30, TargetSeniorRate: 30},
		Weights: types.Weights{Structure: 40, Education: 30, Title: 30},
		Filter:  aggregate.All(),
	}
}

// Default input limits.
const (
	DefaultMaxPlanCount = 100_000
	DefaultMaxStaffAge  = 120
)

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		engine:         tqi.New(),
		defaults:       DefaultParams(),
		histogramWidth: tqi.DefaultBucketWidth,
		sweepWorkers:   runtime.NumCPU(),
		maxSweepRuns:   10_000,
		maxSessions:    1_000,
		maxPlanCount:   DefaultMaxPlanCount,
		maxStaffAge:    DefaultMaxStaffAge,
		logger:         nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the session store.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting tqi service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore[*Session](repository.WithMaxSize(s.maxSessions))
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "tqi service started",
		logger.Int("maxSessions", s.maxSessions),
		logger.Int("sweepWorkers", s.sweepWorkers),
		logger.Int("maxSweepRuns", s.maxSweepRuns),
		logger.Int("histogramWidth", s.histogramWidth),
		logger.Int("maxPlanCount", s.maxPlanCount),
	)

	return nil
}

// Stop marks the service stopped. Sessions stay in the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "tqi service stopped")
}

// Defaults returns the parameters new sessions start from.
func (s *Service) Defaults() Params { return s.defaults }

func (s *Service) sessions() (repository.Store[*Session], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// checkInputs enforces the service limits on a roster and plan.
func (s *Service) checkInputs(roster []model.StaffRecord, plan types.HiringPlan) error {
	if err := model.CheckAges(roster, s.maxStaffAge); err != nil {
		metrics.RecordValidationError(kindOf(err))
		return err
	}
	if err := plan.CheckLimit(s.maxPlanCount); err != nil {
		metrics.RecordValidationError(kindOf(err))
		return err
	}
	return nil
}

func (s *Service) nextSeed() int64 {
	if !s.seeded {
		return time.Now().UnixNano()
	}
	return s.seed + s.seq.Add(1) - 1
}

// CreateSession registers a new session over roster and runs its first
// recompute.
func (s *Service) CreateSession(ctx context.Context, roster []model.StaffRecord, p Params) (Snapshot, error) {
	store, err := s.sessions()
	if err != nil {
		return Snapshot{}, err
	}

	if err := s.checkInputs(roster, p.Plan); err != nil {
		s.logger.Warn(ctx, "rejected session", logger.Error(err))
		return Snapshot{}, err
	}

	id := uuid.NewString()
	sess, err := NewSession(ctx, s.engine, roster, p,
		WithSessionID(id),
		WithSessionSeed(s.nextSeed()),
		WithBucketWidth(s.histogramWidth),
		WithPlanLimit(s.maxPlanCount),
		WithSessionLogger(s.logger.Named("session")),
	)
	if err != nil {
		s.logger.Warn(ctx, "rejected session", logger.Error(err))
		return Snapshot{}, err
	}
	if err := store.Put(ctx, id, sess); err != nil {
		return Snapshot{}, fmt.Errorf("store session: %w", err)
	}

	metrics.RecordSessionCreated()
	metrics.UpdateActiveSessions(store.Count(ctx))
	s.logger.Info(ctx, "session created",
		logger.String("session", id),
		logger.Int("roster", len(roster)),
	)
	return sess.Snapshot(), nil
}

// Session returns the live session for id.
func (s *Service) Session(ctx context.Context, id string) (*Session, error) {
	store, err := s.sessions()
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, id)
}

// Snapshot returns the latest snapshot of session id.
func (s *Service) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// UpdatePlan replaces the hiring plan of session id.
func (s *Service) UpdatePlan(ctx context.Context, id string, plan types.HiringPlan) (Snapshot, error) {
	if err := plan.CheckLimit(s.maxPlanCount); err != nil {
		metrics.RecordValidationError(kindOf(err))
		return Snapshot{}, err
	}
	sess, err := s.Session(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.SetPlan(ctx, plan)
}

// UpdateTarget replaces the target profile of session id.
func (s *Service) UpdateTarget(ctx context.Context, id string, target types.TargetProfile) (Snapshot, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.SetTarget(ctx, target)
}

// UpdateWeights replaces the sub-score weights of session id.
func (s *Service) UpdateWeights(ctx context.Context, id string, w types.Weights) (Snapshot, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.SetWeights(ctx, w)
}

// UpdateFilter replaces the subject filter of session id.
func (s *Service) UpdateFilter(ctx context.Context, id string, f aggregate.GroupFilter) (Snapshot, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.SetGroupFilter(ctx, f)
}

// Reseed resets the random source of session id.
func (s *Service) Reseed(ctx context.Context, id string, seed int64) (Snapshot, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Reseed(ctx, seed)
}

// Watch subscribes fn to session id and returns the snapshot current at
// subscription time. fn may also receive that same version; callers drop
// versions they have already seen.
func (s *Service) Watch(ctx context.Context, id string, fn func(Snapshot)) (Snapshot, func(), error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return Snapshot{}, nil, err
	}
	cancel := sess.Subscribe(fn)
	return sess.Snapshot(), cancel, nil
}

// DeleteSession drops session id.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	store, err := s.sessions()
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	metrics.UpdateActiveSessions(store.Count(ctx))
	s.logger.Info(ctx, "session deleted", logger.String("session", id))
	return nil
}

// ListSessions returns the live session ids.
func (s *Service) ListSessions(ctx context.Context) ([]string, error) {
	store, err := s.sessions()
	if err != nil {
		return nil, err
	}
	return store.IDs(ctx), nil
}

// ScoreOutput is the result of a stateless one-shot computation.
type ScoreOutput struct {
	Seed      int64                   `json:"seed"`
	Result    types.ScoreResult       `json:"result"`
	Baseline  types.ScoreResult       `json:"baseline"`
	Histogram []types.HistogramBucket `json:"histogram"`
}

// Score computes one scenario without creating a session. A nil seed draws
// the next service seed.
func (s *Service) Score(ctx context.Context, roster []model.StaffRecord, p Params, seed *int64) (ScoreOutput, error) {
	if err := s.ready(); err != nil {
		return ScoreOutput{}, err
	}
	if err := s.checkInputs(roster, p.Plan); err != nil {
		return ScoreOutput{}, err
	}

	sd := s.seedOr(seed)
	sess, err := NewSession(ctx, s.engine, roster, p,
		WithSessionSeed(sd),
		WithBucketWidth(s.histogramWidth),
		WithPlanLimit(s.maxPlanCount),
		withInitialTrigger(triggerScore),
	)
	if err != nil {
		return ScoreOutput{}, err
	}
	snap := sess.Snapshot()
	return ScoreOutput{
		Seed:      sd,
		Result:    snap.Result,
		Baseline:  snap.Baseline,
		Histogram: snap.Histogram,
	}, nil
}

// Sweep runs runs replicates of one scenario in parallel and summarizes them.
func (s *Service) Sweep(ctx context.Context, roster []model.StaffRecord, p Params, runs int, seed *int64) (tqi.SweepSummary, error) {
	if err := s.ready(); err != nil {
		return tqi.SweepSummary{}, err
	}
	if err := s.checkInputs(roster, p.Plan); err != nil {
		return tqi.SweepSummary{}, err
	}
	if runs > s.maxSweepRuns {
		err := fmt.Errorf("%w: runs %d exceeds limit %d", tqi.ErrInvalidSweep, runs, s.maxSweepRuns)
		metrics.RecordValidationError(kindOf(err))
		return tqi.SweepSummary{}, err
	}

	start := time.Now()
	summary, err := s.engine.Sweep(ctx, tqi.SweepRequest{
		Input: tqi.Input{
			Existing: roster,
			Plan:     p.Plan,
			Target:   p.Target,
			Weights:  p.Weights,
			Filter:   p.Filter,
		},
		Runs:    runs,
		Seed:    s.seedOr(seed),
		Workers: s.sweepWorkers,
	})
	if err != nil {
		if kind := kindOf(err); kind != kindOther {
			metrics.RecordValidationError(kind)
		}
		return tqi.SweepSummary{}, err
	}

	metrics.RecordSweep(runs, float64(time.Since(start).Microseconds())/1000)
	return summary, nil
}

func (s *Service) seedOr(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return s.nextSeed()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"maxSessions":    s.maxSessions,
		"sweepWorkers":   s.sweepWorkers,
		"maxSweepRuns":   s.maxSweepRuns,
		"maxPlanCount":   s.maxPlanCount,
		"maxStaffAge":    s.maxStaffAge,
		"histogramWidth": s.histogramWidth,
	}

	if s.started {
		sessions := s.store.Count(context.Background())
		stats["activeSessions"] = sessions
		stats["uptimeSeconds"] = time.Since(s.startedAt).Seconds()

		metrics.UpdateActiveSessions(sessions)
	}

	return stats
}
