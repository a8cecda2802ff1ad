// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"

	"github.com/go-playground/validator/v10"

	"github.com/okian/tqi/internal/domain/eligibility"
	"github.com/okian/tqi/internal/domain/generator"
	"github.com/okian/tqi/internal/domain/scoring"
	"github.com/okian/tqi/internal/domain/tqi"
	"github.com/okian/tqi/internal/domain/types"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log line encoding: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MaxSessions caps the live sessions held in memory.
	MaxSessions int `koanf:"max_sessions" validate:"gt=0"`

	// HistogramBucketWidth is the age histogram bucket width in years.
	HistogramBucketWidth int `koanf:"histogram_bucket_width" validate:"gt=0"`

	// SweepWorkers bounds the replicates computed in parallel.
	SweepWorkers int `koanf:"sweep_workers" validate:"gt=0"`

	// MaxSweepRuns caps the replicates a single sweep may request.
	MaxSweepRuns int `koanf:"max_sweep_runs" validate:"gt=0"`

	// MaxPlanCount caps the hires a single plan may request.
	MaxPlanCount int `koanf:"max_plan_count" validate:"gt=0"`

	// MaxStaffAge rejects rosters holding anyone older than this.
	MaxStaffAge int `koanf:"max_staff_age" validate:"gt=0"`

	// RandomSeed makes generated pools reproducible when non-zero.
	RandomSeed int64 `koanf:"random_seed"`

	// Default target profile for new sessions.
	IdealAge           float64 `koanf:"ideal_age" validate:"gt=0"`
	IdealSpread        float64 `koanf:"ideal_spread" validate:"gte=0"`
	TargetGraduateRate float64 `koanf:"target_graduate_rate" validate:"gte=0,lte=100"`
	TargetSeniorRate   float64 `koanf:"target_senior_rate" validate:"gte=0,lte=100"`

	// Default sub-score weights for new sessions.
	StructureWeight float64 `koanf:"structure_weight" validate:"gte=0"`
	EducationWeight float64 `koanf:"education_weight" validate:"gte=0"`
	TitleWeight     float64 `koanf:"title_weight" validate:"gte=0"`

	// YoungIntermediateGraduate is the forced graduate probability for
	// Intermediate hires below the young cutoff.
	YoungIntermediateGraduate float64 `koanf:"young_intermediate_graduate" validate:"gte=0,lte=1"`

	// DistinguishedBaseline is the Distinguished probability for veteran hires.
	DistinguishedBaseline float64 `koanf:"distinguished_baseline" validate:"gte=0,lte=1"`

	// Scoring constants.
	OvershootBonus float64 `koanf:"overshoot_bonus" validate:"gte=0"`
	MeanAgeWeight  float64 `koanf:"mean_age_weight" validate:"gte=0"`
	SpreadWeight   float64 `koanf:"spread_weight" validate:"gte=0"`
	SpreadSigma    float64 `koanf:"spread_sigma" validate:"gte=0"`

	// PlaceholderSubject is assigned to hires when the roster has no subjects.
	PlaceholderSubject string `koanf:"placeholder_subject" validate:"required"`

	// AgeBrackets are the four inclusive hiring age ranges.
	AgeBrackets []generator.AgeBracket `koanf:"age_brackets" validate:"len=4,dive"`
}

var validate = validator.New()

// New creates a Config with defaults.
func New() *Config {
	rules := eligibility.DefaultRules()
	tuning := scoring.DefaultTuning()
	brackets := generator.DefaultBrackets()

	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		MaxSessions:          1_000,
		HistogramBucketWidth: tqi.DefaultBucketWidth,
		SweepWorkers:         runtime.NumCPU(),
		MaxSweepRuns:         10_000,
		MaxPlanCount:         100_000,
		MaxStaffAge:          120,

		IdealAge:           38,
		IdealSpread:        8,
		TargetGraduateRate: 30,
		TargetSeniorRate:   30,

		StructureWeight: 40,
		EducationWeight: 30,
		TitleWeight:     30,

		YoungIntermediateGraduate: rules.YoungIntermediateGraduate,
		DistinguishedBaseline:     rules.VeteranDistinguished,

		OvershootBonus: tuning.OvershootBonus,
		MeanAgeWeight:  tuning.MeanWeight,
		SpreadWeight:   tuning.SpreadWeight,
		SpreadSigma:    tuning.SpreadSigma,

		PlaceholderSubject: "General",
		AgeBrackets:        brackets[:],
	}
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	for i, b := range c.AgeBrackets {
		if b.Max < b.Min {
			return fmt.Errorf("%w: age bracket %d has max %d below min %d", ErrInvalidConfig, i, b.Max, b.Min)
		}
		if b.Max > c.MaxStaffAge {
			return fmt.Errorf("%w: age bracket %d has max %d above max_staff_age %d", ErrInvalidConfig, i, b.Max, c.MaxStaffAge)
		}
	}
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.MeanAgeWeight+c.SpreadWeight == 0 {
		return fmt.Errorf("%w: mean_age_weight and spread_weight must not both be zero", ErrInvalidConfig)
	}
	return nil
}

// Target returns the default target profile.
func (c *Config) Target() types.TargetProfile {
	return types.TargetProfile{
		IdealAge:           c.IdealAge,
		IdealSpread:        c.IdealSpread,
		TargetGraduateRate: c.TargetGraduateRate,
		TargetSeniorRate:   c.TargetSeniorRate,
	}
}

// Weights returns the default sub-score weights.
func (c *Config) Weights() types.Weights {
	return types.Weights{
		Structure: c.StructureWeight,
		Education: c.EducationWeight,
		Title:     c.TitleWeight,
	}
}

// Rules returns the eligibility calibration with configured overrides applied.
func (c *Config) Rules() eligibility.Rules {
	r := eligibility.DefaultRules()
	r.YoungIntermediateGraduate = c.YoungIntermediateGraduate
	r.VeteranDistinguished = c.DistinguishedBaseline
	return r
}

// Tuning returns the scoring constants.
func (c *Config) Tuning() scoring.Tuning {
	return scoring.Tuning{
		MeanWeight:     c.MeanAgeWeight,
		SpreadWeight:   c.SpreadWeight,
		SpreadSigma:    c.SpreadSigma,
		OvershootBonus: c.OvershootBonus,
	}
}

// Brackets returns the hiring age brackets, falling back to the defaults
// when the configured list does not have exactly four entries.
func (c *Config) Brackets() [types.AgeBracketCount]generator.AgeBracket {
	if len(c.AgeBrackets) != types.AgeBracketCount {
		return generator.DefaultBrackets()
	}
	var out [types.AgeBracketCount]generator.AgeBracket
	copy(out[:], c.AgeBrackets)
	return out
}

// EngineOptions returns the engine configuration this Config describes.
func (c *Config) EngineOptions() []tqi.Option {
	return []tqi.Option{
		tqi.WithRules(c.Rules()),
		tqi.WithTuning(c.Tuning()),
		tqi.WithBrackets(c.Brackets()),
		tqi.WithPlaceholderSubject(c.PlaceholderSubject),
	}
}
