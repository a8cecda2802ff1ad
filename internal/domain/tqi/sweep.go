package tqi

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/okian/tqi/internal/domain/types"
	"github.com/okian/tqi/pkg/logger"
)

// SweepRequest runs the same scenario Runs times with independent random
// sources. Replicate i is seeded with Seed+i, so equal requests give equal
// summaries.
type SweepRequest struct {
	Input
	Runs    int
	Seed    int64
	Workers int // <= 0 means runtime.NumCPU()
}

// Stat summarizes one series of replicate values.
type Stat struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// SweepSummary is the distribution of results across replicates.
type SweepSummary struct {
	Runs         int  `json:"runs"`
	Composite    Stat `json:"composite"`
	Structure    Stat `json:"structure"`
	Education    Stat `json:"education"`
	Title        Stat `json:"title"`
	GraduateRate Stat `json:"graduate_rate"`
	SeniorRate   Stat `json:"senior_rate"`
	MeanAge      Stat `json:"mean_age"`
}

// Sweep runs the replicates in parallel. Replicates share nothing but the
// read-only input, so no coordination beyond the errgroup is needed.
func (e *Engine) Sweep(ctx context.Context, req SweepRequest) (SweepSummary, error) {
	if req.Runs <= 0 {
		return SweepSummary{}, fmt.Errorf("%w: runs must be positive, got %d", ErrInvalidSweep, req.Runs)
	}
	if err := req.Plan.Validate(); err != nil {
		return SweepSummary{}, err
	}
	if err := req.Weights.Validate(); err != nil {
		return SweepSummary{}, err
	}
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]types.ScoreResult, req.Runs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < req.Runs; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("sweep cancelled: %w", err)
			}
			rng := rand.New(rand.NewSource(req.Seed + int64(i))) //nolint:gosec // reproducible simulation
			r, err := e.ComputeScore(rng, req.Input)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SweepSummary{}, err
	}

	summary := SweepSummary{
		Runs:         req.Runs,
		Composite:    summarize(results, func(r types.ScoreResult) float64 { return r.CompositeScore }),
		Structure:    summarize(results, func(r types.ScoreResult) float64 { return r.StructureScore }),
		Education:    summarize(results, func(r types.ScoreResult) float64 { return r.EducationScore }),
		Title:        summarize(results, func(r types.ScoreResult) float64 { return r.TitleScore }),
		GraduateRate: summarize(results, func(r types.ScoreResult) float64 { return r.GraduateRate }),
		SeniorRate:   summarize(results, func(r types.ScoreResult) float64 { return r.SeniorRate }),
		MeanAge:      summarize(results, func(r types.ScoreResult) float64 { return r.MeanAge }),
	}
	e.logger.Debug(ctx, "sweep finished",
		logger.Int("runs", req.Runs),
		logger.Int("workers", workers),
		logger.Float64("compositeMean", summary.Composite.Mean),
	)
	return summary, nil
}

func summarize(results []types.ScoreResult, pick func(types.ScoreResult) float64) Stat {
	s := Stat{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, r := range results {
		v := pick(r)
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(results))
	var sq float64
	for _, r := range results {
		d := pick(r) - s.Mean
		sq += d * d
	}
	s.StdDev = math.Sqrt(sq / float64(len(results)))
	return s
}
