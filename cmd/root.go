package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/config"
	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/logging"
	"github.com/abhisek/tutorly/internal/store"
	"github.com/abhisek/tutorly/internal/tutor"
)

var rootCmd = &cobra.Command{
	Use:   "tutorly",
	Short: "Quizzes, secure exams and an AI tutor",
	Long:  "Tutorly runs course quizzes and monitored exams in the terminal or over HTTP, tracks learner progress and answers study questions with an AI tutor.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides TUTORLY_DB and the config file)")
	rootCmd.PersistentFlags().String("config", "", "Path to tutorly.yaml")
	rootCmd.Flags().String("user", "local", "Local user to sign in as")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads settings from the --config file (or the default search
// path), .env and the environment.
func loadConfig(cmd *cobra.Command) (*config.Loader, *config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	loader := config.NewLoader(file)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return loader, cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured path, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.DB != "" {
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	return store.DefaultDBPath()
}

func openStore(cmd *cobra.Command, cfg *config.Config) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// newLogger builds the process logger. The terminal client owns the screen,
// so it logs to the file only.
func newLogger(cfg *config.Config, console bool) (*zap.Logger, error) {
	lc := cfg.Log
	lc.Console = lc.Console && console
	log, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

// newTutor returns nil when no LLM provider is usable; callers run without
// the tutor in that case.
func newTutor(ctx context.Context, cfg *config.Config, st *store.Store, log *zap.Logger) *tutor.Service {
	provider, err := llm.NewProvider(ctx, cfg.LLM, st.EventRepo(), log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "The tutor will be unavailable.")
		log.Warn("llm provider unavailable", zap.Error(err))
		return nil
	}
	return tutor.NewService(provider, cfg.Tutor, log)
}
