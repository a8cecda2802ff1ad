package tqi_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/tqi/internal/domain/aggregate"
	"github.com/okian/tqi/internal/domain/model"
	"github.com/okian/tqi/internal/domain/tqi"
	"github.com/okian/tqi/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func seeded(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

// twinCohort returns 100 records: half aged 28, half aged 36 (mean 32, std dev 4).
func twinCohort() []model.StaffRecord {
	out := make([]model.StaffRecord, 0, 100)
	for i := 0; i < 50; i++ {
		out = append(out,
			model.StaffRecord{Age: 28, Subject: "math", Education: model.EducationGraduateOrAbove, Title: model.TitleAssociate},
			model.StaffRecord{Age: 36, Subject: "physics", Education: model.EducationBachelorOrBelow, Title: model.TitleSenior},
		)
	}
	return out
}

func defaultInput() tqi.Input {
	return tqi.Input{
		Existing: twinCohort(),
		Plan:     types.HiringPlan{Count: 40, AgeWeights: [4]float64{30, 30, 20, 20}, GraduateRate: 40, SeniorPotential: 50},
		Target:   types.TargetProfile{IdealAge: 38, IdealSpread: 8, TargetGraduateRate: 35, TargetSeniorRate: 30},
		Weights:  types.Weights{Structure: 40, Education: 30, Title: 30},
	}
}

func TestComputeScoreValidation(t *testing.T) {
	Convey("Given an engine", t, func() {
		e := tqi.New()

		Convey("When all weights are zero", func() {
			in := defaultInput()
			in.Weights = types.Weights{}
			res, err := e.ComputeScore(seeded(1), in)

			Convey("Then it fails with ErrInvalidWeights and no result", func() {
				So(errors.Is(err, types.ErrInvalidWeights), ShouldBeTrue)
				So(res, ShouldResemble, types.ScoreResult{})
			})
		})

		Convey("When the plan count is negative", func() {
			in := defaultInput()
			in.Plan.Count = -5
			_, err := e.Run(seeded(1), in)

			Convey("Then it fails with ErrInvalidPlan", func() {
				So(errors.Is(err, types.ErrInvalidPlan), ShouldBeTrue)
			})
		})

		Convey("When both are invalid", func() {
			in := defaultInput()
			in.Plan.Count = -5
			in.Weights = types.Weights{}
			_, err := e.Run(seeded(1), in)

			Convey("Then the plan is reported first", func() {
				So(errors.Is(err, types.ErrInvalidPlan), ShouldBeTrue)
			})
		})
	})
}

func TestComputeScoreProperties(t *testing.T) {
	Convey("Given an engine and a mixed scenario", t, func() {
		e := tqi.New()
		in := defaultInput()

		Convey("When the plan count is zero", func() {
			in.Plan.Count = 0
			in.Filter = aggregate.BySubject("math")
			res, err := e.ComputeScore(seeded(9), in)

			Convey("Then the metrics equal aggregating the roster alone", func() {
				So(err, ShouldBeNil)
				So(res.Metrics, ShouldResemble, aggregate.Aggregate(in.Existing, in.Filter))
			})
		})

		Convey("When every weight is scaled by the same constant", func() {
			base, err := e.ComputeScore(seeded(5), in)
			So(err, ShouldBeNil)

			Convey("Then the composite is unchanged", func() {
				for _, k := range []float64{0.01, 2, 1000} {
					scaled := in
					scaled.Weights = types.Weights{Structure: 40 * k, Education: 30 * k, Title: 30 * k}
					res, err := e.ComputeScore(seeded(5), scaled)
					So(err, ShouldBeNil)
					So(res.CompositeScore, ShouldAlmostEqual, base.CompositeScore, 1e-9)
				}
			})
		})

		Convey("When the same seed is reused", func() {
			a, _ := e.Run(seeded(77), in)
			b, _ := e.Run(seeded(77), in)

			Convey("Then the population and result repeat exactly", func() {
				So(a.Result, ShouldResemble, b.Result)
				So(a.Population, ShouldResemble, b.Population)
			})
		})

		Convey("When running a scenario", func() {
			run, err := e.Run(seeded(3), in)

			Convey("Then the population is roster plus Count simulated hires", func() {
				So(err, ShouldBeNil)
				So(run.Population, ShouldHaveLength, 140)
				existing, simulated := aggregate.Split(run.Population)
				So(existing, ShouldHaveLength, 100)
				So(simulated, ShouldHaveLength, 40)
				So(run.Result.PopulationCount, ShouldEqual, 140)
			})

			Convey("Then simulated subjects come from the roster", func() {
				_, simulated := aggregate.Split(run.Population)
				for _, r := range simulated {
					So(r.Subject, ShouldBeIn, []string{"math", "physics"})
				}
			})

			Convey("Then the composite is the weighted mean of sub-scores", func() {
				r := run.Result
				want := (40*r.StructureScore + 30*r.EducationScore + 30*r.TitleScore) / 100
				So(r.CompositeScore, ShouldAlmostEqual, want, 1e-9)
			})
		})
	})
}

func TestComputeScoreScenarios(t *testing.T) {
	Convey("Given the documented scenarios", t, func() {
		e := tqi.New()

		Convey("When the roster already has the ideal mean and spread and nobody is hired", func() {
			existing := twinCohort()
			m := aggregate.Aggregate(existing, aggregate.All())
			So(m.MeanAge, ShouldEqual, 32)

			res, err := e.ComputeScore(seeded(1), tqi.Input{
				Existing: existing,
				Target:   types.TargetProfile{IdealAge: 32, IdealSpread: m.AgeStdDev, TargetGraduateRate: 50, TargetSeniorRate: 50},
				Weights:  types.Weights{Structure: 1, Education: 1, Title: 1},
			})

			Convey("Then the structure score is 100", func() {
				So(err, ShouldBeNil)
				So(res.StructureScore, ShouldAlmostEqual, 100, 1e-9)
			})
		})

		Convey("When an empty roster hires ten young teachers with no graduate rate or potential", func() {
			run, err := e.Run(seeded(2024), tqi.Input{
				Plan:    types.HiringPlan{Count: 10, AgeWeights: [4]float64{100, 0, 0, 0}},
				Target:  types.TargetProfile{IdealAge: 38, IdealSpread: 8, TargetGraduateRate: 30, TargetSeniorRate: 30},
				Weights: types.Weights{Structure: 1, Education: 1, Title: 1},
			})

			Convey("Then the hires respect the age, title and education rules", func() {
				So(err, ShouldBeNil)
				So(run.Population, ShouldHaveLength, 10)
				for _, r := range run.Population {
					So(r.Age, ShouldBeBetweenOrEqual, 22, 29)
					So(r.Title, ShouldBeBetweenOrEqual, model.TitleUnranked, model.TitleIntermediate)
					if r.Education.IsGraduate() {
						So(r.Title, ShouldEqual, model.TitleIntermediate)
					}
				}
				So(run.Result.SeniorRate, ShouldEqual, 0)
				So(run.Result.TitleScore, ShouldEqual, 0)
			})
		})

		Convey("When the filtered population is empty", func() {
			in := defaultInput()
			in.Filter = aggregate.BySubject("music")
			res, err := e.ComputeScore(seeded(1), in)

			Convey("Then a well-defined zero-rate result comes back", func() {
				So(err, ShouldBeNil)
				So(res.PopulationCount, ShouldEqual, 0)
				So(res.GraduateRate, ShouldEqual, 0)
				So(math.IsNaN(res.CompositeScore), ShouldBeFalse)
			})
		})
	})
}

func TestBaseline(t *testing.T) {
	Convey("Given a scenario", t, func() {
		e := tqi.New()
		in := defaultInput()

		Convey("Then the baseline ignores the plan", func() {
			base, err := e.Baseline(in)
			So(err, ShouldBeNil)
			in.Plan.Count = 0
			zero, err := e.ComputeScore(seeded(1), in)
			So(err, ShouldBeNil)
			So(base, ShouldResemble, zero)
		})

		Convey("Then the baseline still rejects zero weights", func() {
			in.Weights = types.Weights{}
			_, err := e.Baseline(in)
			So(errors.Is(err, types.ErrInvalidWeights), ShouldBeTrue)
		})
	})
}

func TestSweep(t *testing.T) {
	Convey("Given a sweep request", t, func() {
		e := tqi.New()
		req := tqi.SweepRequest{Input: defaultInput(), Runs: 32, Seed: 100, Workers: 4}

		Convey("When it runs", func() {
			s, err := e.Sweep(context.Background(), req)

			Convey("Then the summary brackets every replicate", func() {
				So(err, ShouldBeNil)
				So(s.Runs, ShouldEqual, 32)
				So(s.Composite.Min, ShouldBeLessThanOrEqualTo, s.Composite.Mean)
				So(s.Composite.Max, ShouldBeGreaterThanOrEqualTo, s.Composite.Mean)
				So(s.Composite.StdDev, ShouldBeGreaterThanOrEqualTo, 0)
			})

			Convey("Then an equal request reproduces it regardless of workers", func() {
				req.Workers = 1
				again, err := e.Sweep(context.Background(), req)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, s)
			})

			Convey("Then replicate zero matches a direct computation", func() {
				req.Runs = 1
				one, err := e.Sweep(context.Background(), req)
				So(err, ShouldBeNil)
				direct, err := e.ComputeScore(seeded(100), req.Input)
				So(err, ShouldBeNil)
				So(one.Composite.Mean, ShouldEqual, direct.CompositeScore)
				So(one.Composite.StdDev, ShouldEqual, 0)
			})
		})

		Convey("When runs is not positive", func() {
			req.Runs = 0
			_, err := e.Sweep(context.Background(), req)
			So(errors.Is(err, tqi.ErrInvalidSweep), ShouldBeTrue)
		})

		Convey("When the weights are invalid", func() {
			req.Weights = types.Weights{Structure: -1}
			_, err := e.Sweep(context.Background(), req)
			So(errors.Is(err, types.ErrInvalidWeights), ShouldBeTrue)
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := e.Sweep(ctx, req)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
