package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/rally-results/internal/protocol"
	"github.com/Tiliavir/rally-results/internal/results"
	"github.com/Tiliavir/rally-results/internal/timecalc"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <rally-id>",
	Short: "Export a rally's results as xlsx, csv or json",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "Output format: xlsx, csv, json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file; required for xlsx, stdout otherwise")
}

func runExport(cmd *cobra.Command, args []string) error {
	rallyID, err := parseID(args[0], "rally id")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	switch exportFormat {
	case "xlsx", "csv", "json":
	default:
		fmt.Fprintf(os.Stderr, "invalid --format value %q: want xlsx, csv or json\n", exportFormat)
		os.Exit(1)
	}
	if exportFormat == "xlsx" && exportOutput == "" {
		fmt.Fprintln(os.Stderr, "--output is required for xlsx")
		os.Exit(1)
	}

	cfg := mustConfig()
	store := mustStore(cfg, mustLogger(cfg))
	defer store.Close()

	res, err := results.NewAggregator(store).RallyResults(context.Background(), rallyID)
	if err != nil {
		fail(store, err)
	}

	if exportFormat == "xlsx" {
		f, err := protocol.Build(res)
		if err != nil {
			fail(store, err)
		}
		defer f.Close()
		if err := f.SaveAs(exportOutput); err != nil {
			fail(store, fmt.Errorf("write %s: %w", exportOutput, err))
		}
		fmt.Printf("Wrote %s\n", exportOutput)
		return nil
	}

	var w io.Writer = os.Stdout
	if exportOutput != "" {
		out, err := os.Create(exportOutput)
		if err != nil {
			fail(store, err)
		}
		defer out.Close()
		w = out
	}

	switch exportFormat {
	case "json":
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			fail(store, fmt.Errorf("error encoding JSON: %w", err))
		}
		fmt.Fprintln(w, string(data))
	default: // csv
		if err := printCSV(w, res); err != nil {
			fail(store, fmt.Errorf("write csv: %w", err))
		}
	}
	return nil
}

// printCSV writes one row per ranked entry, stage groups in order.
func printCSV(w io.Writer, res results.RallyResults) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"rally", "stage_number", "stage", "position", "driver", "car", "class", "time", "seconds", "gap"})
	for _, stage := range res.Stages {
		for _, e := range stage.Entries {
			_ = cw.Write([]string{
				res.Rally.Name,
				stage.StageNumber,
				stage.StageName,
				strconv.Itoa(e.Position),
				e.Driver.Name,
				e.Car.Name,
				e.Car.Class,
				timecalc.FormatSeconds(e.Seconds),
				strconv.FormatFloat(e.Seconds, 'f', 2, 64),
				timecalc.FormatGap(e.Gap),
			})
		}
	}
	cw.Flush()
	return cw.Error()
}
