package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/rally-results/internal/timecalc"
	"github.com/Tiliavir/rally-results/internal/timingfeed"
)

var (
	syncEvent  string
	syncRally  int64
	syncDryRun bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import stage times from the remote timing feed",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncEvent, "event", "", "Event id on the timing feed")
	syncCmd.Flags().Int64Var(&syncRally, "rally", 0, "Rally id to import into")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Print planned operations without writing")
	_ = syncCmd.MarkFlagRequired("event")
	_ = syncCmd.MarkFlagRequired("rally")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := mustConfig()
	if !cfg.FeedConfigured() {
		fmt.Fprintln(os.Stderr, "timing feed is not configured: set feed.base_url, feed.token_url and feed.client_id")
		os.Exit(1)
	}
	log := mustLogger(cfg)
	store := mustStore(cfg, log)
	defer store.Close()

	dryTag := ""
	if syncDryRun {
		dryTag = " [dry-run]"
	}
	fmt.Printf("Syncing event %s into rally %d%s...\n", syncEvent, syncRally, dryTag)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	splits, err := timingfeed.NewClient(ctx, cfg.Feed).Splits(ctx, syncEvent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch splits: %v\n", err)
		_ = store.Close()
		os.Exit(1)
	}

	result, err := timingfeed.Sync(ctx, store, splits, timingfeed.SyncOptions{
		RallyID: syncRally,
		DryRun:  syncDryRun,
		Logger:  log,
	})
	if err != nil {
		fail(store, fmt.Errorf("sync error: %w", err))
	}

	fmt.Println()
	fmt.Printf("Summary (%s):\n", timecalc.FormatDuration(int64(time.Since(start).Seconds())))
	fmt.Printf("  %d imported\n", result.Imported)
	fmt.Printf("  %d skipped\n", result.Skipped)
	if result.Errors > 0 {
		fmt.Printf("  %d errors\n", result.Errors)
		_ = store.Close()
		os.Exit(2)
	}
	return nil
}
