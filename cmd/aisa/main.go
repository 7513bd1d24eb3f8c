package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/config"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/filter"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/logging"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/session"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/tree"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	flagLogLevel string
	flagLogJSON  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "aisa",
		Short:         "AI Session Analyzer - inspect, filter and search AI pair-programming session logs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug/info/warn/error), overrides config")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Log as JSON on stderr")

	rootCmd.AddCommand(transcriptCmd())
	rootCmd.AddCommand(treeCmd())
	rootCmd.AddCommand(countCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(viewCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is what every command needs: configuration, a logger and the parsers
// built from them.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	reader *jsonl.Reader
	parser *session.Parser
}

func loadApp(treeOpts ...tree.Option) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	logger := logging.Init(cfg.LogJSON || flagLogJSON, logging.ParseLevel(level))
	for _, k := range cfg.Unknown {
		logger.Warn("unknown config key", "key", k, "path", cfg.Path)
	}

	contentFilter, err := filter.New(cfg.Rules())
	if err != nil {
		return nil, fmt.Errorf("config filter: %w", err)
	}

	reader := jsonl.NewReader(jsonl.WithLogger(logger), jsonl.WithMaxLineSize(cfg.MaxLineSize))
	parser := session.New(
		session.WithReader(reader),
		session.WithFilter(contentFilter),
		session.WithLogger(logger),
		session.WithTreeOptions(treeOpts...),
	)
	return &app{cfg: cfg, logger: logger, reader: reader, parser: parser}, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
