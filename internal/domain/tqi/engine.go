// Package tqi orchestrates candidate generation, aggregation and scoring into
// the composite Teacher Quality Index.
//
// An Engine is immutable once built and may be shared across sessions. The
// only stochastic step is generation, which draws from the random source the
// caller passes in.
package tqi

import (
	"context"
	"math/rand"
	"time"

	"github.com/okian/tqi/internal/domain/aggregate"
	"github.com/okian/tqi/internal/domain/eligibility"
	"github.com/okian/tqi/internal/domain/generator"
	"github.com/okian/tqi/internal/domain/model"
	"github.com/okian/tqi/internal/domain/scoring"
	"github.com/okian/tqi/internal/domain/types"
	"github.com/okian/tqi/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRules sets the eligibility calibration used for synthetic hires.
func WithRules(r eligibility.Rules) Option {
	return func(e *Engine) {
		e.genOpts = append(e.genOpts, generator.WithRules(r))
	}
}

// WithBrackets sets the hiring age brackets.
func WithBrackets(b [types.AgeBracketCount]generator.AgeBracket) Option {
	return func(e *Engine) {
		e.genOpts = append(e.genOpts, generator.WithBrackets(b))
	}
}

// WithPlaceholderSubject sets the subject assigned when the roster is empty.
func WithPlaceholderSubject(s string) Option {
	return func(e *Engine) {
		e.genOpts = append(e.genOpts, generator.WithPlaceholderSubject(s))
	}
}

// WithTuning sets the scoring constants.
func WithTuning(t scoring.Tuning) Option {
	return func(e *Engine) {
		e.scorer = scoring.NewScorer(scoring.WithTuning(t))
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine computes score results.
type Engine struct {
	genOpts []generator.Option
	scorer  *scoring.Scorer
	logger  logger.Logger
}

// New creates an Engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		scorer: scoring.NewScorer(),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input is one complete set of recompute parameters.
type Input struct {
	Existing []model.StaffRecord
	Plan     types.HiringPlan
	Target   types.TargetProfile
	Weights  types.Weights
	Filter   aggregate.GroupFilter
}

// Run is the outcome of one recompute: the result and the combined population
// it was computed from (unfiltered, for chart helpers).
type Run struct {
	Result     types.ScoreResult
	Population []model.StaffRecord
}

// Generator returns a generator configured like the engine, drawing from rng.
// A nil rng gets a time-seeded source.
func (e *Engine) Generator(rng generator.Rand) *generator.Generator {
	opts := append([]generator.Option{}, e.genOpts...)
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // simulation, not security
	}
	opts = append(opts, generator.WithRand(rng))
	return generator.New(opts...)
}

// Scorer returns the scorer in use.
func (e *Engine) Scorer() *scoring.Scorer { return e.scorer }

// Run validates the parameters, generates the synthetic pool from rng,
// aggregates the filtered combined population and scores it.
func (e *Engine) Run(rng generator.Rand, in Input) (Run, error) {
	if err := in.Plan.Validate(); err != nil {
		return Run{}, err
	}
	if err := in.Weights.Validate(); err != nil {
		return Run{}, err
	}

	existing := model.Tag(in.Existing, model.OriginExisting)
	simulated, err := e.Generator(rng).Generate(in.Plan, model.Subjects(existing))
	if err != nil {
		return Run{}, err
	}

	population := make([]model.StaffRecord, 0, len(existing)+len(simulated))
	population = append(population, existing...)
	population = append(population, simulated...)

	result := e.Score(population, in.Target, in.Weights, in.Filter)

	e.logger.Debug(context.Background(), "recomputed score",
		logger.Int("existing", len(existing)),
		logger.Int("simulated", len(simulated)),
		logger.Int("population", result.PopulationCount),
		logger.Float64("composite", result.CompositeScore),
	)
	return Run{Result: result, Population: population}, nil
}

// ComputeScore is the single entry point: Run without the population.
func (e *Engine) ComputeScore(rng generator.Rand, in Input) (types.ScoreResult, error) {
	run, err := e.Run(rng, in)
	if err != nil {
		return types.ScoreResult{}, err
	}
	return run.Result, nil
}

// Baseline scores the existing roster alone under the same target, weights
// and filter. Only the weights are validated.
func (e *Engine) Baseline(in Input) (types.ScoreResult, error) {
	if err := in.Weights.Validate(); err != nil {
		return types.ScoreResult{}, err
	}
	return e.Score(in.Existing, in.Target, in.Weights, in.Filter), nil
}

// Score aggregates and scores an already assembled population. Weights must
// be valid.
func (e *Engine) Score(population []model.StaffRecord, target types.TargetProfile, w types.Weights, f aggregate.GroupFilter) types.ScoreResult {
	m := aggregate.Aggregate(population, f)
	sub := e.scorer.SubScores(m, target)
	return types.ScoreResult{
		StructureScore: sub.Structure,
		EducationScore: sub.Education,
		TitleScore:     sub.Title,
		CompositeScore: scoring.Composite(sub, w),
		Metrics:        m,
	}
}
