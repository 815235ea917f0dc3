// Package cmd wires the tumoreval command line.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/tumoreval/config"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/pkg/log"
)

var rootDescription = `tumoreval balances the WDBC tumor-diagnosis data with SMOTE, trains a
decision tree, a multi-layer perceptron and a random forest on a stratified
hold-out split, and reports accuracy, precision, recall, F1, confusion
matrices and k-fold cross-validation accuracy side by side.`

// options are the flags shared by every subcommand.
type options struct {
	cfgFile  string
	logLevel string
	console  bool

	cfg *config.Config
}

// NewRootCommand builds the command tree. Logs go to stderr; reports to the
// command's output writer.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:               "tumoreval",
		Short:             "evaluate classifiers on the breast cancer diagnosis data",
		Long:              rootDescription,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
	}

	flagSet := root.PersistentFlags()
	flagSet.StringVar(&opts.cfgFile, "config", "", "YAML configuration file (TUMOREVAL_* variables override it)")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.BoolVar(&opts.console, "console", false, "human readable logs instead of JSON")

	root.AddCommand(
		newEvaluateCommand(opts),
		newDescribeCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

func (o *options) init(cmd *cobra.Command) error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("console") {
		cfg.Log.Console = o.console
	}
	if err := log.SetupLogger(cfg.Log.Level, cmd.ErrOrStderr(), cfg.Log.Console); err != nil {
		return errors.Wrap(err, "init logger")
	}
	if o.cfgFile != "" {
		log.GetLogger().Debug("using config file", log.ConfigFileKey, o.cfgFile)
	}
	o.cfg = cfg
	return nil
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	os.Exit(run(NewRootCommand(), os.Args[1:], os.Stderr))
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
