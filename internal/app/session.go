package service

import (
	"context"
	"maps"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tqi/internal/domain/aggregate"
	"github.com/okian/tqi/internal/domain/model"
	"github.com/okian/tqi/internal/domain/tqi"
	"github.com/okian/tqi/internal/domain/types"
	"github.com/okian/tqi/pkg/logger"
	"github.com/okian/tqi/pkg/metrics"
)

// State is the recompute state of a Session.
type State int32

const (
	// StateIdle means the published result reflects the current parameters.
	StateIdle State = iota
	// StateDirty means a parameter was accepted and a recompute is pending.
	StateDirty
	// StateRecomputing means generate -> aggregate -> score is running.
	StateRecomputing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDirty:
		return "dirty"
	case StateRecomputing:
		return "recomputing"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Recompute triggers, used as metric labels.
const (
	triggerCreate  = "create"
	triggerPlan    = "plan"
	triggerTarget  = "target"
	triggerWeights = "weights"
	triggerFilter  = "filter"
	triggerReseed  = "reseed"
	triggerScore   = "score"
)

// Params are the mutable inputs of a session. Each is replaced wholesale.
type Params struct {
	Plan    types.HiringPlan      `json:"plan"`
	Target  types.TargetProfile   `json:"target"`
	Weights types.Weights         `json:"weights"`
	Filter  aggregate.GroupFilter `json:"filter"`
}

// Snapshot is one published state of a session.
type Snapshot struct {
	ID      string `json:"id"`
	Version uint64 `json:"version"`
	State   State  `json:"state"`
	Seed    int64  `json:"seed"`
	Params  Params `json:"params"`
	// Result scores the roster plus the simulated hires.
	Result types.ScoreResult `json:"result"`
	// Baseline scores the roster alone under the same target, weights and filter.
	Baseline  types.ScoreResult       `json:"baseline"`
	Histogram []types.HistogramBucket `json:"histogram"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// SessionOption applies a configuration option to a Session.
type SessionOption func(*Session)

// WithSessionID sets the session identifier carried in snapshots.
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		s.id = id
	}
}

// WithSessionSeed seeds the session's random source.
func WithSessionSeed(seed int64) SessionOption {
	return func(s *Session) {
		s.seed = seed
	}
}

// WithBucketWidth sets the histogram bucket width in years.
func WithBucketWidth(width int) SessionOption {
	return func(s *Session) {
		if width > 0 {
			s.bucketWidth = width
		}
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l logger.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPlanLimit caps the hires a plan may request. Zero means no limit.
func WithPlanLimit(maxCount int) SessionOption {
	return func(s *Session) {
		if maxCount > 0 {
			s.maxPlanCount = maxCount
		}
	}
}

func withInitialTrigger(trigger string) SessionOption {
	return func(s *Session) {
		s.initialTrigger = trigger
	}
}

// Session holds one interactive exploration: a fixed roster and the current
// parameters. Every accepted mutation triggers one synchronous recompute.
//
// Listeners from Subscribe may read the session but must not mutate it.
type Session struct {
	mu          sync.Mutex
	notifyMu    sync.Mutex
	listenersMu sync.Mutex

	id           string
	engine       *tqi.Engine
	roster       []model.StaffRecord
	params       Params
	seed         int64
	rng          *rand.Rand
	bucketWidth  int
	maxPlanCount int
	logger       logger.Logger
	now          func() time.Time

	initialTrigger string

	state   atomic.Int32
	version uint64
	snap    Snapshot

	listeners    map[int]func(Snapshot)
	nextListener int
}

// NewSession validates params, performs the initial recompute and returns an
// Idle session at version 1.
func NewSession(ctx context.Context, engine *tqi.Engine, roster []model.StaffRecord, params Params, opts ...SessionOption) (*Session, error) {
	s := &Session{
		engine:      engine,
		roster:      model.Tag(roster, model.OriginExisting),
		seed:        time.Now().UnixNano(),
		bucketWidth: tqi.DefaultBucketWidth,
		logger:      logger.Nop(),
		now:         time.Now,
		listeners:   make(map[int]func(Snapshot)),

		initialTrigger: triggerCreate,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = tqi.New()
	}
	s.rng = rand.New(rand.NewSource(s.seed)) //nolint:gosec // simulation, not security

	if err := s.validateParams(params); err != nil {
		metrics.RecordValidationError(kindOf(err))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = params
	s.state.Store(int32(StateDirty))
	if err := s.recomputeLocked(ctx, s.initialTrigger); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) validateParams(p Params) error {
	if err := s.validatePlan(p.Plan); err != nil {
		return err
	}
	return p.Weights.Validate()
}

func (s *Session) validatePlan(plan types.HiringPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	return plan.CheckLimit(s.maxPlanCount)
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current recompute state without waiting for a recompute.
func (s *Session) State() State { return State(s.state.Load()) }

// Snapshot returns the latest published snapshot. It waits for an in-flight
// recompute to finish.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// SetPlan replaces the hiring plan. An invalid plan, or one above the plan
// limit, fails with types.ErrInvalidPlan and leaves the session unchanged.
func (s *Session) SetPlan(ctx context.Context, plan types.HiringPlan) (Snapshot, error) {
	if err := s.validatePlan(plan); err != nil {
		return s.reject(ctx, triggerPlan, err)
	}
	return s.mutate(ctx, triggerPlan, func(p *Params) { p.Plan = plan })
}

// SetTarget replaces the target profile.
func (s *Session) SetTarget(ctx context.Context, target types.TargetProfile) (Snapshot, error) {
	return s.mutate(ctx, triggerTarget, func(p *Params) { p.Target = target })
}

// SetWeights replaces the sub-score weights. Invalid weights fail with
// types.ErrInvalidWeights and leave the session unchanged.
func (s *Session) SetWeights(ctx context.Context, w types.Weights) (Snapshot, error) {
	if err := w.Validate(); err != nil {
		return s.reject(ctx, triggerWeights, err)
	}
	return s.mutate(ctx, triggerWeights, func(p *Params) { p.Weights = w })
}

// SetGroupFilter replaces the subject filter. A subject with no staff yields
// an empty, zero-rate result rather than an error.
func (s *Session) SetGroupFilter(ctx context.Context, f aggregate.GroupFilter) (Snapshot, error) {
	return s.mutate(ctx, triggerFilter, func(p *Params) { p.Filter = f })
}

// Reseed resets the random source to seed and recomputes with unchanged
// parameters.
func (s *Session) Reseed(ctx context.Context, seed int64) (Snapshot, error) {
	s.mu.Lock()
	s.seed = seed
	s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // simulation, not security
	s.state.Store(int32(StateDirty))
	if err := s.recomputeLocked(ctx, triggerReseed); err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	return s.publishAndUnlock(), nil
}

// Subscribe registers fn to receive every snapshot published after this call.
// Listeners run synchronously in publication order. The returned func
// removes the listener.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Session) reject(ctx context.Context, trigger string, err error) (Snapshot, error) {
	metrics.RecordValidationError(kindOf(err))
	s.logger.Warn(ctx, "rejected session mutation",
		logger.String("session", s.id),
		logger.String("trigger", trigger),
		logger.Error(err),
	)
	return Snapshot{}, err
}

func (s *Session) mutate(ctx context.Context, trigger string, apply func(*Params)) (Snapshot, error) {
	s.mu.Lock()
	prev := s.params
	apply(&s.params)
	s.state.Store(int32(StateDirty))

	if err := s.recomputeLocked(ctx, trigger); err != nil {
		s.params = prev
		s.state.Store(int32(StateIdle))
		s.mu.Unlock()
		return Snapshot{}, err
	}
	return s.publishAndUnlock(), nil
}

// recomputeLocked runs one full cycle and stores the new snapshot.
// The caller holds s.mu and has set StateDirty.
func (s *Session) recomputeLocked(ctx context.Context, trigger string) error {
	s.state.Store(int32(StateRecomputing))
	start := time.Now()

	in := tqi.Input{
		Existing: s.roster,
		Plan:     s.params.Plan,
		Target:   s.params.Target,
		Weights:  s.params.Weights,
		Filter:   s.params.Filter,
	}
	run, err := s.engine.Run(s.rng, in)
	if err != nil {
		s.state.Store(int32(StateIdle))
		return err
	}
	baseline := s.engine.Score(s.roster, in.Target, in.Weights, in.Filter)
	histogram := tqi.BucketedAgeHistogram(aggregate.Filter(run.Population, in.Filter), s.bucketWidth)

	s.version++
	s.snap = Snapshot{
		ID:        s.id,
		Version:   s.version,
		State:     StateIdle,
		Seed:      s.seed,
		Params:    s.params,
		Result:    run.Result,
		Baseline:  baseline,
		Histogram: histogram,
		UpdatedAt: s.now(),
	}
	s.state.Store(int32(StateIdle))

	took := time.Since(start)
	metrics.RecordRecompute(trigger, float64(took.Microseconds())/1000, run.Result.CompositeScore, run.Result.PopulationCount)
	s.logger.Debug(ctx, "session recomputed",
		logger.String("session", s.id),
		logger.String("trigger", trigger),
		logger.Int("version", int(s.version)),
		logger.Float64("composite", run.Result.CompositeScore),
		logger.Duration("took", took),
	)
	return nil
}

// publishAndUnlock hands the lock over to the notifier so listeners see
// snapshots in version order while reads of the session stay possible.
func (s *Session) publishAndUnlock() Snapshot {
	snap := s.snap
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.listenersMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, id := range slices.Sorted(maps.Keys(s.listeners)) {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
	return snap
}
