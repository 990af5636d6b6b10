// Package main provides the kgq CLI: a thin, non-interactive entry point
// that accepts a question string and an artifact source, runs it through
// the Planner → Executor → Resolver pipeline, and prints the resulting
// Answer. There is no interactive mode.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/itihasa/kgq/internal/config"
)

var (
	flagDataDir  string
	flagSource   string
	flagOutput   string
	flagWatch    bool
	flagTrace    bool
	flagOTEL     string
	flagSQLDSN   string
	flagSQLDrv   string
	flagRemote   string
	flagLogLevel string
)

// logger is the process-wide structured logger, installed by applyConfig
// once the resolved log level is known. It writes to stderr so pretty and
// json Answer output on stdout stays clean.
var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"})
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"})
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"})
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

var rootCmd = &cobra.Command{
	Use:   "kgq",
	Short: "Query a precomputed event-centric knowledge graph",
	Long: `kgq answers structured natural-language questions against a precomputed,
event-centric knowledge graph of a narrative corpus.

Examples:
  kgq ask "Who killed Karna?"
  kgq ask --data-dir ./data --output json "Why did Bhishma support Duryodhana?"
  kgq ask --source sql --sql-dsn "user:pass@tcp(host)/db" "Who benefited from Drona's death?"`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: applyConfig,
}

// applyConfig layers internal/config's resolved view (defaults, kgq.yaml
// sidecar, KGQ_-prefixed env vars) under whatever flags the invocation
// itself set. Priority: flags > config file/env > defaults.
func applyConfig(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.Load(flagDataDir, ".")
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("data-dir") {
		flagDataDir = cfg.DataDir
	}
	if !cmd.Flags().Changed("source") {
		flagSource = cfg.SourceKind
	}
	if !cmd.Flags().Changed("output") {
		flagOutput = cfg.OutputMode
	}
	if !cmd.Flags().Changed("watch") {
		flagWatch = cfg.Watch
	}
	if !cmd.Flags().Changed("otel-exporter") {
		flagOTEL = cfg.OTELExporter
	}
	if !cmd.Flags().Changed("sql-dsn") {
		flagSQLDSN = cfg.SQLDSN
	}
	if !cmd.Flags().Changed("sql-driver") {
		flagSQLDrv = cfg.SQLDriver
	}
	if !cmd.Flags().Changed("remote-url") {
		flagRemote = cfg.RemoteURL
	}
	if !cmd.Flags().Changed("log-level") {
		flagLogLevel = cfg.LogLevel
	}
	logger = newLogger(flagLogLevel)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "./data", "directory holding entities/events/edges artifacts (file source)")
	rootCmd.PersistentFlags().StringVar(&flagSource, "source", "file", "artifact source: file | sql | http")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "pretty", "output mode: pretty | json | markdown")
	rootCmd.PersistentFlags().BoolVar(&flagWatch, "watch", false, "reload the graph on artifact file changes between queries (file source only)")
	rootCmd.PersistentFlags().BoolVar(&flagTrace, "trace", false, "include the full decision trace in the output")
	rootCmd.PersistentFlags().StringVar(&flagOTEL, "otel-exporter", "stdout", "otel exporter: stdout | otlp | none")
	rootCmd.PersistentFlags().StringVar(&flagSQLDSN, "sql-dsn", "", "DSN for the sql artifact source")
	rootCmd.PersistentFlags().StringVar(&flagSQLDrv, "sql-driver", "dolt", "driver name for the sql artifact source: dolt | mysql")
	rootCmd.PersistentFlags().StringVar(&flagRemote, "remote-url", "", "bundle URL for the http artifact source")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug | info | warn | error")

	rootCmd.AddCommand(askCmd)
}

// isInteractiveOutput reports whether stdout is a real terminal, using
// x/term's ioctl-based check. A non-terminal (piped output, CI logs) gets
// lipgloss's color profile forced to ASCII so redirected "kgq ask" output
// never carries stray escape codes.
func isInteractiveOutput() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// glamourStyle picks the "dark" or "light" built-in glamour style from the
// terminal's reported background, via termenv's output-capability probe —
// the same signal lipgloss itself uses internally for adaptive colors,
// surfaced here explicitly for the markdown render path.
func glamourStyle() string {
	if termenv.NewOutput(os.Stdout).HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func main() {
	if !isInteractiveOutput() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("Error: "+err.Error()))
		os.Exit(exitCodeFor(err))
	}
}
