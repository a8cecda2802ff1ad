// Package types contains the parameter and result types shared across the
// scoring engine, the session layer and the transport adapters.
package types

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// AgeBracketCount is the number of age buckets a hiring plan distributes over.
const AgeBracketCount = 4

var validate = validator.New()

// HiringPlan describes the synthetic hires to generate. It is replaced
// wholesale on every edit.
type HiringPlan struct {
	Count int `json:"count" validate:"gte=0"`
	// AgeWeights need not sum to 100; they are normalized by the generator.
	AgeWeights [AgeBracketCount]float64 `json:"age_weights" validate:"dive,gte=0"`
	// GraduateRate is the 0-100 probability of Graduate-or-above education.
	GraduateRate float64 `json:"graduate_rate" validate:"gte=0,lte=100"`
	// SeniorPotential is a 0-100 weight steering titles toward Senior/Distinguished.
	SeniorPotential float64 `json:"senior_potential" validate:"gte=0,lte=100"`
}

// Validate checks the plan and wraps failures in ErrInvalidPlan.
func (p HiringPlan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPlan, err.Error())
	}
	return nil
}

// CheckLimit rejects a plan hiring more than maxCount people. A non-positive
// maxCount means no limit.
func (p HiringPlan) CheckLimit(maxCount int) error {
	if maxCount > 0 && p.Count > maxCount {
		return fmt.Errorf("%w: count %d exceeds limit %d", ErrInvalidPlan, p.Count, maxCount)
	}
	return nil
}

// CountFromFloat converts a count decoded from a JSON number. Negative or
// fractional values fail with ErrInvalidPlan.
func CountFromFloat(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: count must be a non-negative integer, got %v", ErrInvalidPlan, f)
	}
	if f > math.MaxInt32 {
		return 0, fmt.Errorf("%w: count %v is too large", ErrInvalidPlan, f)
	}
	return int(f), nil
}

// TargetProfile is the ideal population shape.
type TargetProfile struct {
	IdealAge float64 `json:"ideal_age"`
	// IdealSpread is the desired age standard deviation. It is also the
	// tolerance of the mean-age proximity curve.
	IdealSpread        float64 `json:"ideal_spread"`
	TargetGraduateRate float64 `json:"target_graduate_rate"`
	TargetSeniorRate   float64 `json:"target_senior_rate"`
}

// Weights blend the three sub-scores. Only their proportions matter.
type Weights struct {
	Structure float64 `json:"structure_weight" validate:"gte=0"`
	Education float64 `json:"education_weight" validate:"gte=0"`
	Title     float64 `json:"title_weight" validate:"gte=0"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 { return w.Structure + w.Education + w.Title }

// Validate rejects negative weights and an all-zero set.
func (w Weights) Validate() error {
	if err := validate.Struct(w); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidWeights, err.Error())
	}
	if !(w.Sum() > 0) || math.IsInf(w.Sum(), 0) {
		return fmt.Errorf("%w: at least one weight must be above zero", ErrInvalidWeights)
	}
	return nil
}

// Metrics are the summary statistics of a population.
type Metrics struct {
	MeanAge         float64 `json:"mean_age"`
	AgeStdDev       float64 `json:"age_std_dev"`
	GraduateRate    float64 `json:"graduate_rate"`
	SeniorRate      float64 `json:"senior_rate"`
	PopulationCount int     `json:"population_count"`
}

// SubScores are the three components of the composite.
type SubScores struct {
	Structure float64 `json:"structure_score"`
	Education float64 `json:"education_score"`
	Title     float64 `json:"title_score"`
}

// ScoreResult is the output of one recompute.
type ScoreResult struct {
	StructureScore float64 `json:"structure_score"`
	EducationScore float64 `json:"education_score"`
	TitleScore     float64 `json:"title_score"`
	CompositeScore float64 `json:"composite_score"`
	Metrics
}

// Flatten returns the result as a flat numeric key/value map for rendering
// and narrative collaborators.
func (r ScoreResult) Flatten() map[string]float64 {
	return map[string]float64{
		"structure_score":  r.StructureScore,
		"education_score":  r.EducationScore,
		"title_score":      r.TitleScore,
		"composite_score":  r.CompositeScore,
		"mean_age":         r.MeanAge,
		"age_std_dev":      r.AgeStdDev,
		"graduate_rate":    r.GraduateRate,
		"senior_rate":      r.SeniorRate,
		"population_count": float64(r.PopulationCount),
	}
}

// HistogramBucket is one chart-ready age bucket. Lower and Upper are inclusive.
type HistogramBucket struct {
	Label     string `json:"label"`
	Lower     int    `json:"lower"`
	Upper     int    `json:"upper"`
	Existing  int    `json:"existing"`
	Simulated int    `json:"simulated"`
}
