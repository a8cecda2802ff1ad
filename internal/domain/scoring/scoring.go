// Package scoring holds the pure statistical functions that turn aggregated
// population metrics into sub-scores.
package scoring

import (
	"math"

	"github.com/okian/tqi/internal/domain/types"
)

// Default scoring configuration constants.
const (
	defaultMeanWeight     = 0.7
	defaultSpreadWeight   = 0.3
	defaultSpreadSigma    = 4.0
	defaultOvershootBonus = 0.2
	maxScoreValue         = 100
)

// Tuning holds every constant of the scoring formulas.
type Tuning struct {
	// MeanWeight and SpreadWeight blend the two proximity evaluations of the
	// structure sub-score.
	MeanWeight   float64 `json:"mean_weight"`
	SpreadWeight float64 `json:"spread_weight"`
	// SpreadSigma is the tolerance of the spread proximity curve, in years.
	SpreadSigma float64 `json:"spread_sigma"`
	// OvershootBonus is the points earned per rate point above target.
	OvershootBonus float64 `json:"overshoot_bonus"`
}

// DefaultTuning returns the stock constants.
func DefaultTuning() Tuning {
	return Tuning{
		MeanWeight:     defaultMeanWeight,
		SpreadWeight:   defaultSpreadWeight,
		SpreadSigma:    defaultSpreadSigma,
		OvershootBonus: defaultOvershootBonus,
	}
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithTuning replaces the scoring constants. Negative blend weights are ignored.
func WithTuning(t Tuning) Option {
	return func(s *Scorer) {
		if t.MeanWeight < 0 || t.SpreadWeight < 0 || t.MeanWeight+t.SpreadWeight == 0 {
			return
		}
		s.tuning = t
	}
}

// Scorer computes sub-scores from metrics and a target profile.
type Scorer struct {
	tuning Tuning
}

// NewScorer creates a new scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{tuning: DefaultTuning()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tuning returns the constants in use.
func (s *Scorer) Tuning() Tuning { return s.tuning }

// Proximity is a Gaussian closeness score: 100 at observed == target, falling
// off with tolerance sigma. A non-positive sigma only rewards an exact match.
func Proximity(observed, target, sigma float64) float64 {
	if !(sigma > 0) {
		if observed == target {
			return maxScoreValue
		}
		return 0
	}
	d := observed - target
	return maxScoreValue * math.Exp(-(d*d)/(2*sigma*sigma))
}

// Achievement scores a rate against a target: proportional below target,
// 100 plus a small linear bonus at or above it. A target of zero or less is
// trivially met.
func Achievement(observed, target, bonus float64) float64 {
	if target <= 0 {
		return maxScoreValue
	}
	if observed >= target {
		return maxScoreValue + (observed-target)*bonus
	}
	return observed / target * maxScoreValue
}

// Structure blends mean-age proximity with spread proximity, so a roster
// clustered tightly around the ideal age still loses points.
func (s *Scorer) Structure(m types.Metrics, target types.TargetProfile) float64 {
	mean := Proximity(m.MeanAge, target.IdealAge, target.IdealSpread)
	spread := Proximity(m.AgeStdDev, target.IdealSpread, s.tuning.SpreadSigma)
	total := s.tuning.MeanWeight + s.tuning.SpreadWeight
	return (s.tuning.MeanWeight*mean + s.tuning.SpreadWeight*spread) / total
}

// Education scores the graduate rate against its target.
func (s *Scorer) Education(m types.Metrics, target types.TargetProfile) float64 {
	return Achievement(m.GraduateRate, target.TargetGraduateRate, s.tuning.OvershootBonus)
}

// Title scores the senior rate against its target.
func (s *Scorer) Title(m types.Metrics, target types.TargetProfile) float64 {
	return Achievement(m.SeniorRate, target.TargetSeniorRate, s.tuning.OvershootBonus)
}

// SubScores computes all three sub-scores.
func (s *Scorer) SubScores(m types.Metrics, target types.TargetProfile) types.SubScores {
	return types.SubScores{
		Structure: s.Structure(m, target),
		Education: s.Education(m, target),
		Title:     s.Title(m, target),
	}
}

// Composite is the weighted mean of the sub-scores. Weights must already be valid.
func Composite(sub types.SubScores, w types.Weights) float64 {
	return (w.Structure*sub.Structure + w.Education*sub.Education + w.Title*sub.Title) / w.Sum()
}
