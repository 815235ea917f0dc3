package cmd

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/tumoreval/dataset"
	"github.com/YuminosukeSato/tumoreval/report"
)

func newDescribeCommand(opts *options) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "print class balance and per-class feature statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.cfg.Data.Path
			if cmd.Flags().Changed("data") {
				path = data
			}
			ds, err := loadFeatures(path, opts.cfg.Data.Features)
			if err != nil {
				return err
			}
			return report.WriteDescribe(cmd.OutOrStdout(), dataset.Describe(ds))
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "WDBC CSV file (overrides data.path)")
	return cmd
}
