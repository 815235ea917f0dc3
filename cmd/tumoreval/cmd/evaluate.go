package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/tumoreval/dataset"
	"github.com/YuminosukeSato/tumoreval/evaluation"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/pkg/log"
	"github.com/YuminosukeSato/tumoreval/report"
)

type evaluateFlags struct {
	data     string
	out      string
	seed     int64
	parallel bool
}

func newEvaluateCommand(opts *options) *cobra.Command {
	flags := &evaluateFlags{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "balance, train and compare the configured classifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			f := cmd.Flags()
			if f.Changed("data") {
				cfg.Data.Path = flags.data
			}
			if f.Changed("out") {
				cfg.Report.Dir = flags.out
			}
			if f.Changed("seed") {
				cfg.Evaluation.Seed = flags.seed
			}
			if f.Changed("parallel") {
				cfg.Evaluation.Parallel = flags.parallel
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rep, err := evaluate(ctx, opts)
			if err != nil {
				return err
			}
			if err := report.WriteTable(cmd.OutOrStdout(), rep); err != nil {
				return errors.Wrap(err, "write table")
			}
			if cfg.Report.Dir != "" {
				if _, err := report.WriteDir(cfg.Report.Dir, rep, cfg.Report.Formats); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flagSet := cmd.Flags()
	flagSet.StringVar(&flags.data, "data", "", "WDBC CSV file (overrides data.path)")
	flagSet.StringVar(&flags.out, "out", "", "report directory (overrides report.dir)")
	flagSet.Int64Var(&flags.seed, "seed", 42, "random seed (overrides evaluation.seed)")
	flagSet.BoolVar(&flags.parallel, "parallel", false, "evaluate variants concurrently")
	return cmd
}

func evaluate(ctx context.Context, opts *options) (*evaluation.Report, error) {
	cfg := opts.cfg
	ds, err := loadFeatures(cfg.Data.Path, cfg.Data.Features)
	if err != nil {
		return nil, err
	}
	ev, err := evaluation.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	log.GetLoggerWithName("cli").Info("evaluation started",
		log.SamplesKey, ds.Len(),
		log.FeaturesKey, ds.FeatureNames(),
		"variants", ev.Registry().Names(),
	)
	return ev.Run(ctx, ds)
}

func loadFeatures(path string, features []string) (*dataset.Dataset, error) {
	if path == "" {
		return nil, errors.NewValidationError("data.path", "no dataset given (use --data or data.path)", path)
	}
	ds, err := dataset.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	return ds.Select(features...)
}
