package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/davidkell/replay-audit/internal/capture"
	"github.com/davidkell/replay-audit/internal/config"
	"github.com/davidkell/replay-audit/internal/database"
	"github.com/davidkell/replay-audit/internal/journal"
	"github.com/davidkell/replay-audit/internal/logging"
	"github.com/davidkell/replay-audit/internal/services"
)

const version = "0.3.0"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "auditor",
		Short: "Offline timing and completeness audit for recorded trading captures",
		Long: `auditor validates a trading pipeline's recorded evidence after the fact:
whether each signal fired before its justifying bar had closed, and whether
every journaled trade has a corresponding capture (and vice versa).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newCorrelateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// auditFlags apply command-line overrides on top of the loaded configuration.
func auditFlags(cmd *cobra.Command) {
	cmd.Flags().String("capture-dir", "", "Directory containing capture files")
	cmd.Flags().String("journal", "", "Path to the trade journal (JSONL)")
	cmd.Flags().Int("bar-interval", 0, "Bar interval in minutes")
	cmd.Flags().Int("tolerance", 0, "Correlation tolerance window in seconds")
	cmd.Flags().Int("retention-cap", 0, "Maximum retained capture count")
	cmd.Flags().String("output", "", "Output directory for report artifacts")
	cmd.Flags().Bool("exclusive", false, "Enforce one-to-one trade/capture matching")
}

func loadConfigWithFlags(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("capture-dir"); v != "" {
		cfg.Capture.Directory = v
	}
	if v, _ := cmd.Flags().GetString("journal"); v != "" {
		cfg.Journal.Path = v
	}
	if cmd.Flags().Changed("bar-interval") {
		cfg.Capture.BarIntervalMinutes, _ = cmd.Flags().GetInt("bar-interval")
	}
	if cmd.Flags().Changed("tolerance") {
		cfg.Correlation.ToleranceSeconds, _ = cmd.Flags().GetInt("tolerance")
	}
	if cmd.Flags().Changed("retention-cap") {
		cfg.Correlation.RetentionCap, _ = cmd.Flags().GetInt("retention-cap")
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Output.Directory = v
	}
	if cmd.Flags().Changed("exclusive") {
		cfg.Correlation.Exclusive, _ = cmd.Flags().GetBool("exclusive")
	}

	// Flag overrides can re-break the invariants validated at load time.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logging.ParseLogrusLevel(cfg.LogLevel))
	return logger
}

// newAuditCmd creates the audit command: the full pipeline from capture
// loading through reconciliation and artifact output.
func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run the full timing and correlation audit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigWithFlags(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := context.Background()

			var store services.ReportStore
			if cfg.Database.Enabled {
				db, err := database.NewPostgresConnection(ctx, cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()
				store = database.NewReportStore(db.Pool)
			}

			runID := uuid.New().String()
			logging.NewStandardLogger(cfg.LogLevel).LogStartup(runID, cfg.Capture.Directory, cfg.Journal.Path)

			auditor := services.NewAuditor(cfg, store, logger)
			summary, err := auditor.Run(ctx, runID)
			if err != nil {
				return err
			}

			printTimingReport(cmd.OutOrStdout(), summary)
			printCorrelationReport(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	auditFlags(cmd)
	return cmd
}

// newCorrelateCmd creates the correlate command: trade/capture matching and
// retention reconciliation only, without timing artifacts.
func newCorrelateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Match journal trades against captures and reconcile retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigWithFlags(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			loader := capture.NewLoader(cfg.Capture, logger)
			captures, err := loader.LoadAll()
			if err != nil {
				return err
			}

			reader := journal.NewReader(cfg.Journal.Path, logger)
			trades, err := reader.ReadAll()
			if err != nil {
				return err
			}

			correlator := services.NewCorrelator(cfg.Correlation.Tolerance(), cfg.Correlation.Exclusive, logger)
			result := correlator.Correlate(trades, captures)

			reconciler := services.NewReconciler(cfg.Correlation.RetentionCap, logger)
			reconciler.Reconcile(&result, captures)

			summary := &services.RunSummary{
				Correlation:  result,
				TradeDates:   services.TradeDateDistribution(trades),
				CaptureDates: services.CaptureDateDistribution(captures),
			}
			printCorrelationReport(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	auditFlags(cmd)
	return cmd
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "auditor %s\n", version)
		},
	}
}
