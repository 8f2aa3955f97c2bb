package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/japaniel/ankivocab/pkg/config"
	"github.com/spf13/cobra"
)

// app holds state shared by the subcommands.
type app struct {
	cfg *config.Config
	log *slog.Logger

	// Global flags.
	verbose   bool
	dbPath    string
	noHistory bool
	logFormat string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "ankivocab",
		Short: "Turn vocabulary lists into Anki flashcards",
		Long: `ankivocab enriches BCS vocabulary words with metadata, definitions,
example sentences and images, and writes an Anki import file.

Progress is stored per word so repeated runs only do missing work.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Path to the history database (overrides HISTORY_DB)")
	root.PersistentFlags().BoolVar(&a.noHistory, "no-history", false, "Keep stage history in memory only")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text or json (overrides LOG_FORMAT)")

	// Disable default completion command
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newRunCmd(a), newStatusCmd(a), newClearCmd(a))
	return root
}

// setup loads configuration, applies global flag overrides and builds the logger.
func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Paths.HistoryDB = a.dbPath
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	log, err := newLogger(stderr, level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}
