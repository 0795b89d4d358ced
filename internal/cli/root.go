// Package cli implements the reconcile command tree.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/ledger-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/ledger-reconcile/internal/infrastructure/config"
	"github.com/eshaffer321/ledger-reconcile/internal/infrastructure/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool

	cfg    *config.Config
	base   *slog.Logger // without a system prefix
	logger *slog.Logger
}

// NewRootCommand builds the reconcile command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "reconcile",
		Short: "Match expenses to revenues and balance a ledger",
		Long: `reconcile reads a CSV or XLSX ledger, links expenses to the revenues that
cover them, and groups them into balanced match groups.

Matching runs exact, then keyword, then fuzzy description matching. Groups
whose amounts net to zero are confirmed; the rest are left for review.

Examples:
  reconcile analyze ledger.xlsx
  reconcile run ledger.csv -o reconciled.xlsx
  reconcile suggest ledger.csv --id 12
  reconcile serve --port 8080`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: ./config.yaml, then environment)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text, json)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(a.analyzeCmd())
	root.AddCommand(a.runCmd())
	root.AddCommand(a.suggestCmd())
	root.AddCommand(a.serveCmd())
	root.AddCommand(versionCmd(version))

	return root
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		a.cfg = cfg
	} else {
		a.cfg = config.LoadOrEnv()
	}

	loggingCfg := a.cfg.Observability.Logging
	if a.logLevel != "" {
		loggingCfg.Level = a.logLevel
	}
	if a.logFormat != "" {
		loggingCfg.Format = a.logFormat
	}
	if a.verbose {
		loggingCfg.Level = "debug"
	}

	a.base = logging.NewLoggerTo(cmd.ErrOrStderr(), loggingCfg)
	a.logger = a.base.With("system", "reconcile")
	return nil
}

// pipeline builds a reconciliation pipeline from the loaded config.
func (a *app) pipeline() (*reconcile.Pipeline, error) {
	rules, err := a.cfg.BalanceRules()
	if err != nil {
		return nil, fmt.Errorf("invalid balance config: %w", err)
	}
	return reconcile.NewPipeline(a.cfg.MatchingRules(), rules, a.logger), nil
}

func versionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reconcile %s\n", version)
		},
	}
}
