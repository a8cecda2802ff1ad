// Package generator produces synthetic candidate hires from a hiring plan.
package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/okian/tqi/internal/domain/eligibility"
	"github.com/okian/tqi/internal/domain/model"
	"github.com/okian/tqi/internal/domain/types"
	"github.com/okian/tqi/pkg/logger"
)

// Default generator configuration constants.
const (
	defaultPlaceholderSubject = "General"
)

// Rand is the pluggable random source. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// AgeBracket is an inclusive age range.
type AgeBracket struct {
	Min int `json:"min" koanf:"min"`
	Max int `json:"max" koanf:"max"`
}

// DefaultBrackets returns the four stock hiring age brackets.
func DefaultBrackets() [types.AgeBracketCount]AgeBracket {
	return [types.AgeBracketCount]AgeBracket{
		{Min: 22, Max: 29},
		{Min: 30, Max: 39},
		{Min: 40, Max: 49},
		{Min: 50, Max: 60},
	}
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithRand injects the random source. Tests pass a seeded *rand.Rand.
func WithRand(rng Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// WithSeed uses a math/rand source seeded with seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // simulation, not security
	}
}

// WithRules overrides the eligibility calibration.
func WithRules(r eligibility.Rules) Option {
	return func(g *Generator) {
		g.rules = r
	}
}

// WithBrackets overrides the age brackets. Brackets with Max < Min are ignored.
func WithBrackets(b [types.AgeBracketCount]AgeBracket) Option {
	return func(g *Generator) {
		for _, br := range b {
			if br.Max < br.Min {
				return
			}
		}
		g.brackets = b
	}
}

// WithPlaceholderSubject sets the subject used when the subject pool is empty.
func WithPlaceholderSubject(s string) Option {
	return func(g *Generator) {
		if s != "" {
			g.placeholder = s
		}
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// Generator draws synthetic staff records. It is not safe for concurrent use
// because the underlying random source is not; give each session its own.
type Generator struct {
	rng         Rand
	rules       eligibility.Rules
	brackets    [types.AgeBracketCount]AgeBracket
	placeholder string
	logger      logger.Logger
}

// New creates a Generator with configuration options.
func New(opts ...Option) *Generator {
	g := &Generator{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // simulation, not security
		rules:       eligibility.DefaultRules(),
		brackets:    DefaultBrackets(),
		placeholder: defaultPlaceholderSubject,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Rules returns the eligibility calibration in use.
func (g *Generator) Rules() eligibility.Rules { return g.rules }

// Brackets returns the age brackets in use.
func (g *Generator) Brackets() [types.AgeBracketCount]AgeBracket { return g.brackets }

// Generate returns plan.Count simulated records. The plan is validated first;
// an invalid plan yields no records.
func (g *Generator) Generate(plan types.HiringPlan, subjectPool []string) ([]model.StaffRecord, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	out := make([]model.StaffRecord, 0, plan.Count)
	if plan.Count == 0 {
		return out, nil
	}

	pool := subjectPool
	if len(pool) == 0 {
		pool = []string{g.placeholder}
	}

	buckets := Partition(plan.Count, plan.AgeWeights)
	for i, n := range buckets {
		br := g.brackets[i]
		for j := 0; j < n; j++ {
			age := br.Min + g.rng.Intn(br.Max-br.Min+1)
			title := g.rules.DrawTitle(g.rng, age, plan.SeniorPotential)
			out = append(out, model.StaffRecord{
				Name:      fmt.Sprintf("sim-%04d", len(out)+1),
				Age:       age,
				Subject:   pool[g.rng.Intn(len(pool))],
				Education: g.rules.DrawEducation(g.rng, age, title, plan.GraduateRate),
				Title:     title,
				Origin:    model.OriginSimulated,
			})
		}
	}

	if g.logger != nil {
		g.logger.Debug(context.Background(), "generated candidates",
			logger.Int("count", len(out)),
			logger.Any("buckets", buckets),
		)
	}
	return out, nil
}

// Partition splits count across the brackets proportionally to weights.
// Shares are floored and the remainder goes to the last bucket, so the result
// always sums to count. All-zero weights split evenly.
func Partition(count int, weights [types.AgeBracketCount]float64) [types.AgeBracketCount]int {
	var out [types.AgeBracketCount]int
	if count <= 0 {
		return out
	}

	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if !(total > 0) || math.IsInf(total, 0) {
		for i := range weights {
			weights[i] = 1
		}
		total = types.AgeBracketCount
	}

	assigned := 0
	for i := 0; i < types.AgeBracketCount-1; i++ {
		w := math.Max(weights[i], 0)
		out[i] = int(math.Floor(float64(count) * w / total))
		assigned += out[i]
	}
	for i := types.AgeBracketCount - 2; assigned > count && i >= 0; i-- {
		// float rounding can only overshoot by a unit per bucket
		if out[i] > 0 {
			out[i]--
			assigned--
		}
	}
	out[types.AgeBracketCount-1] = count - assigned
	return out
}
