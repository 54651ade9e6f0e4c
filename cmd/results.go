package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/rally-results/internal/results"
	"github.com/Tiliavir/rally-results/internal/timecalc"
)

var resultsNoColor bool

var resultsCmd = &cobra.Command{
	Use:   "results <rally-id>",
	Short: "Show per-stage leaderboards of a rally",
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	resultsCmd.Flags().BoolVar(&resultsNoColor, "no-color", false, "Disable leader highlighting")
}

func runResults(cmd *cobra.Command, args []string) error {
	rallyID, err := parseID(args[0], "rally id")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if resultsNoColor {
		color.NoColor = true //nolint:reassign // library global
	}

	cfg := mustConfig()
	store := mustStore(cfg, mustLogger(cfg))
	defer store.Close()

	res, err := results.NewAggregator(store).RallyResults(context.Background(), rallyID)
	if err != nil {
		fail(store, err)
	}

	printResults(os.Stdout, res)
	return nil
}

// printResults writes one table per stage group, leader row highlighted.
func printResults(w io.Writer, res results.RallyResults) {
	fmt.Fprintf(w, "%s (%s)\n", res.Rally.Name, res.Rally.Date.Format("2006-01-02"))
	if len(res.Stages) == 0 {
		fmt.Fprintln(w, "No times recorded.")
		return
	}

	leader := color.New(color.FgGreen, color.Bold)
	for _, stage := range res.Stages {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s  %s\n", stage.StageNumber, stage.StageName)

		tbl := newTable(w)
		tbl.AppendHeader(table.Row{"Pos", "Driver", "Car", "Class", "Time", "Gap"})
		for _, e := range stage.Entries {
			row := table.Row{
				e.Position,
				e.Driver.Name,
				e.Car.Name,
				e.Car.Class,
				timecalc.FormatSeconds(e.Seconds),
				timecalc.FormatGap(e.Gap),
			}
			if e.Position == 1 {
				for i, v := range row {
					row[i] = leader.Sprint(v)
				}
			}
			tbl.AppendRow(row)
		}
		tbl.Render()
	}
}
