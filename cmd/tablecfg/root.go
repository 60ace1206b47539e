// Command tablecfg runs Clear & Match and Compare on local files.
package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tablecfg/internal/config"
	"github.com/JonMunkholm/tablecfg/internal/core"
	"github.com/JonMunkholm/tablecfg/internal/logging"
	"github.com/JonMunkholm/tablecfg/internal/report"
)

// commandContext carries state shared by subcommands.
type commandContext struct {
	logLevel  string
	logFormat string
	workers   int
	jsonOut   bool

	cfg *config.Config
}

// service builds a Service from the loaded configuration. The CLI runs one
// pipeline at a time, so the limiter has a single slot.
func (c *commandContext) service() *core.Service {
	workers := c.cfg.Upload.Workers
	if c.workers > 0 {
		workers = c.workers
	}
	return core.NewService(core.Options{
		Workers:              workers,
		DefaultThreshold:     c.cfg.Compare.DefaultThreshold,
		CorrectOnlyWhenWrong: c.cfg.Compare.CorrectOnlyWhenWrong,
		RunTimeout:           c.cfg.Upload.RunTimeout,
		Style: report.Style{
			ColumnWidth: c.cfg.Report.ColumnWidth,
			FlagColor:   c.cfg.Report.FlagColor,
		},
	}, core.NewRunLimiter(1, c.cfg.Upload.MaxWaitTime))
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "tablecfg",
		Short:         "Reconcile table configuration exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx.cfg = cfg

			level := cfg.Logging.Level
			if ctx.logLevel != "" {
				level = ctx.logLevel
			}
			format := cfg.Logging.Format
			if ctx.logFormat != "" {
				format = ctx.logFormat
			}
			logging.Setup(cmd.ErrOrStderr(), level, format)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL)")
	flags.StringVar(&ctx.logFormat, "log-format", "", "Log format: text or json (default from LOG_FORMAT)")
	flags.IntVar(&ctx.workers, "workers", 0, "Concurrent tier scans and table comparisons (default from RUN_WORKERS)")
	flags.BoolVar(&ctx.jsonOut, "json", false, "Print the run summary as JSON")

	rootCmd.AddCommand(newClearCommand(ctx))
	rootCmd.AddCommand(newCompareCommand(ctx))

	return rootCmd
}
