package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/export"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pipeline"
)

var (
	discoverMarket     string
	discoverIndustries []string
	discoverLocations  []string
	discoverLimit      int
	discoverExportPath string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run a lead discovery pipeline for a market",
	Long: `Runs one full discovery pipeline: searches Google Maps for businesses
matching the configured industries and locations, parses and dedupes the
results, enriches each prospect, finds contacts, and scores the survivors
against the ICP profile. The finished report is persisted to the run store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Flag overrides
		if discoverMarket != "" {
			cfg.Discovery.Market = discoverMarket
		}
		if len(discoverIndustries) > 0 {
			cfg.Discovery.Filters.Industries = discoverIndustries
		}
		if len(discoverLocations) > 0 {
			cfg.Discovery.Filters.Locations = discoverLocations
		}
		if discoverLimit > 0 {
			cfg.Discovery.MaxProspects = discoverLimit
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limiter := initLimiter()
		tools, err := initTools(limiter)
		if err != nil {
			return err
		}

		run, err := st.CreateRun(ctx, cfg.Discovery.Market)
		if err != nil {
			return eris.Wrap(err, "create run")
		}
		if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
			return eris.Wrap(err, "mark run running")
		}

		p := pipeline.New(cfg.Discovery, limiter, tools, nil)
		report, runErr := p.Run(ctx, run.ID)

		// Persist the report even when the run was cancelled.
		if err := st.SaveReport(context.WithoutCancel(ctx), run.ID, report); err != nil {
			zap.L().Error("save report failed", zap.String("run_id", run.ID), zap.Error(err))
		}

		zap.L().Info("run finished",
			zap.String("run_id", run.ID),
			zap.String("status", string(report.Status)),
			zap.Int("candidates", report.CandidatesSeen),
			zap.Int("prospects", len(report.Prospects)),
			zap.Int("rejected", report.Rejected),
			zap.Float64("avg_icp_score", report.AverageICPScore),
		)

		if discoverExportPath != "" && len(report.Prospects) > 0 {
			if err := export.WriteXLSX(report, discoverExportPath); err != nil {
				return eris.Wrap(err, "export prospects")
			}
			zap.L().Info("prospects exported", zap.String("path", discoverExportPath))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return eris.Wrap(err, "encode report")
		}

		if runErr != nil {
			return eris.Wrap(runErr, "discovery run")
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverMarket, "market", "", "market label for the run (default from config)")
	discoverCmd.Flags().StringSliceVar(&discoverIndustries, "industry", nil, "industry to search (repeatable)")
	discoverCmd.Flags().StringSliceVar(&discoverLocations, "location", nil, "location to search (repeatable)")
	discoverCmd.Flags().IntVar(&discoverLimit, "limit", 0, "max prospects to keep (default from config)")
	discoverCmd.Flags().StringVar(&discoverExportPath, "export", "", "write qualified prospects to this .xlsx file")
	rootCmd.AddCommand(discoverCmd)
}
