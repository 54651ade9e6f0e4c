package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/rally-results/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load drivers, cars, stages, rallies and times from a YAML fixture",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	fixture, err := seed.Load(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		os.Exit(1)
	}

	cfg := mustConfig()
	log := mustLogger(cfg)
	store := mustStore(cfg, log)
	defer store.Close()

	sum, err := seed.Apply(context.Background(), store, fixture, log)
	if err != nil {
		fail(store, err)
	}

	fmt.Printf("Seeded %d drivers, %d cars, %d stages, %d rallies, %d times\n",
		sum.Drivers, sum.Cars, sum.Stages, sum.Rallies, sum.Times)
	return nil
}
