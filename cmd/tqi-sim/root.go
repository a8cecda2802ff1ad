package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	app "github.com/okian/tqi/internal/app"
	"github.com/okian/tqi/internal/config"
	"github.com/okian/tqi/internal/domain/aggregate"
	"github.com/okian/tqi/internal/domain/model"
	"github.com/okian/tqi/internal/domain/tqi"
	"github.com/okian/tqi/internal/domain/types"
	"github.com/okian/tqi/pkg/logger"
)

// simFlags are the scenario flags shared by every subcommand.
type simFlags struct {
	roster string
	out    string

	count           int
	ageWeights      []float64
	graduateRate    float64
	seniorPotential float64

	idealAge     float64
	idealSpread  float64
	targetGrad   float64
	targetSenior float64
	structureW   float64
	educationW   float64
	titleW       float64
	subject      string
	seed         int64
}

func newRootCmd() *cobra.Command {
	f := &simFlags{}
	root := &cobra.Command{
		Use:   "tqi-sim",
		Short: "Teacher Quality Index simulator",
		Long:  "tqi-sim scores a staff roster plus a simulated hiring cohort against a target profile and prints JSON.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logger.Init(logger.WithWriter(cmd.ErrOrStderr()))
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.roster, "roster", "r", "", "Path to roster JSON file, an array of staff records (required)")
	pf.StringVarP(&f.out, "out", "o", "", "Path to output JSON file (default stdout)")
	pf.IntVar(&f.count, "count", 0, "Number of hires to simulate")
	pf.Float64SliceVar(&f.ageWeights, "age-weights", []float64{25, 25, 25, 25}, "Relative weights of the four hiring age brackets")
	pf.Float64Var(&f.graduateRate, "graduate-rate", 0, "Percent of hires holding a graduate degree")
	pf.Float64Var(&f.seniorPotential, "senior-potential", 0, "Percent of hires with senior potential")
	pf.Float64Var(&f.idealAge, "ideal-age", 0, "Target mean age (default from config)")
	pf.Float64Var(&f.idealSpread, "ideal-spread", 0, "Target age standard deviation (default from config)")
	pf.Float64Var(&f.targetGrad, "target-graduate", 0, "Target graduate rate in percent (default from config)")
	pf.Float64Var(&f.targetSenior, "target-senior", 0, "Target senior rate in percent (default from config)")
	pf.Float64Var(&f.structureW, "structure-weight", 0, "Structure sub-score weight (default from config)")
	pf.Float64Var(&f.educationW, "education-weight", 0, "Education sub-score weight (default from config)")
	pf.Float64Var(&f.titleW, "title-weight", 0, "Title sub-score weight (default from config)")
	pf.StringVar(&f.subject, "subject", "", "Restrict scoring to one subject")
	pf.Int64Var(&f.seed, "seed", 0, "Random seed (default time based)")

	if err := root.MarkPersistentFlagRequired("roster"); err != nil {
		panic(fmt.Sprintf("failed to mark roster flag as required: %v", err))
	}

	root.AddCommand(newScoreCmd(f), newSweepCmd(f), newHistogramCmd(f))
	return root
}

// scenario is a loaded roster with resolved parameters.
type scenario struct {
	svc    *app.Service
	roster []model.StaffRecord
	params app.Params
	seed   *int64
}

// load reads the config and roster and resolves flags over config defaults.
func (f *simFlags) load(cmd *cobra.Command, extra ...app.Option) (*scenario, error) {
	cfg, err := config.Load(contextOf(cmd))
	if err != nil {
		return nil, err
	}

	roster, err := readRoster(f.roster)
	if err != nil {
		return nil, err
	}

	params, err := f.params(cmd, cfg)
	if err != nil {
		return nil, err
	}

	opts := []app.Option{
		app.WithLogger(logger.Get()),
		app.WithEngine(tqi.New(append(cfg.EngineOptions(), tqi.WithLogger(logger.Named("engine")))...)),
		app.WithHistogramWidth(cfg.HistogramBucketWidth),
		app.WithSweepWorkers(cfg.SweepWorkers),
		app.WithMaxSweepRuns(cfg.MaxSweepRuns),
		app.WithMaxPlanCount(cfg.MaxPlanCount),
		app.WithMaxStaffAge(cfg.MaxStaffAge),
	}
	sc := &scenario{
		svc:    app.New(append(opts, extra...)...),
		roster: roster,
		params: params,
	}
	if err := sc.svc.Start(contextOf(cmd)); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("seed") {
		seed := f.seed
		sc.seed = &seed
	}
	return sc, nil
}

func (f *simFlags) params(cmd *cobra.Command, cfg *config.Config) (app.Params, error) {
	changed := cmd.Flags().Changed

	if len(f.ageWeights) != types.AgeBracketCount {
		return app.Params{}, fmt.Errorf("%w: --age-weights needs %d values, got %d",
			types.ErrInvalidPlan, types.AgeBracketCount, len(f.ageWeights))
	}
	plan := types.HiringPlan{
		Count:           f.count,
		GraduateRate:    f.graduateRate,
		SeniorPotential: f.seniorPotential,
	}
	copy(plan.AgeWeights[:], f.ageWeights)

	target := cfg.Target()
	if changed("ideal-age") {
		target.IdealAge = f.idealAge
	}
	if changed("ideal-spread") {
		target.IdealSpread = f.idealSpread
	}
	if changed("target-graduate") {
		target.TargetGraduateRate = f.targetGrad
	}
	if changed("target-senior") {
		target.TargetSeniorRate = f.targetSenior
	}

	weights := cfg.Weights()
	if changed("structure-weight") {
		weights.Structure = f.structureW
	}
	if changed("education-weight") {
		weights.Education = f.educationW
	}
	if changed("title-weight") {
		weights.Title = f.titleW
	}

	filter := aggregate.All()
	if f.subject != "" {
		filter = aggregate.BySubject(f.subject)
	}

	return app.Params{Plan: plan, Target: target, Weights: weights, Filter: filter}, nil
}

func readRoster(path string) ([]model.StaffRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file %s: %w", path, err)
	}
	var roster []model.StaffRecord
	if err := json.Unmarshal(content, &roster); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster JSON: %w", err)
	}
	if err := model.ValidateAll(roster); err != nil {
		return nil, fmt.Errorf("invalid roster %s: %w", path, err)
	}
	return roster, nil
}

// writeJSON prints v indented to --out or the command's stdout.
func (f *simFlags) writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	data = append(data, '\n')

	if f.out == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(f.out, data, 0o600); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", f.out, err)
	}
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
