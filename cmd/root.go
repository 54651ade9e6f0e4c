package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/rally-results/internal/config"
	"github.com/Tiliavir/rally-results/internal/logging"
	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/seed"
	"github.com/Tiliavir/rally-results/internal/storage"
	"github.com/Tiliavir/rally-results/internal/storage/backend"
	"github.com/Tiliavir/rally-results/internal/timecalc"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rally",
	Short: "Rally results recorder",
	Long: `rally records drivers, cars, stages, rallies and stage times, and
renders per-stage leaderboards on the command line or through its web site.
Records are kept in sqlite, badger or a JSON file, selected by configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default .rally.yaml in . or $HOME)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(syncCmd)
}

// mustConfig loads the configuration or exits with code 1.
func mustConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// mustLogger builds the slog logger on stderr or exits with code 1.
func mustLogger(cfg *config.Config) *slog.Logger {
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return log
}

// mustStore opens the configured backend or exits with code 2.
func mustStore(cfg *config.Config, log *slog.Logger) storage.Store {
	store, err := backend.Open(cfg.Storage, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return store
}

// exitCode maps an error to the process exit code: 1 for bad input
// (validation, unknown ids or names, malformed times), 2 for storage failures.
func exitCode(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, timecalc.ErrFormat),
		errors.Is(err, seed.ErrUnknownName):
		return 1
	default:
		return 2
	}
}

// fail prints err to stderr and exits with the code exitCode picks.
func fail(store storage.Store, err error) {
	fmt.Fprintln(os.Stderr, err)
	if store != nil {
		_ = store.Close()
	}
	os.Exit(exitCode(err))
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive integer", what, arg)
	}
	return id, nil
}
