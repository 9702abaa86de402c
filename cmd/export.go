package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/export"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's qualified prospects to an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}
		if run.Report == nil {
			return eris.Errorf("run %s has no report yet (status: %s)", run.ID, run.Status)
		}

		if err := export.WriteXLSX(run.Report, exportOutput); err != nil {
			return eris.Wrap(err, "export")
		}

		zap.L().Info("prospects exported",
			zap.String("run_id", run.ID),
			zap.Int("prospects", len(run.Report.Prospects)),
			zap.String("path", exportOutput),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "prospects.xlsx", "output file path")
	rootCmd.AddCommand(exportCmd)
}
