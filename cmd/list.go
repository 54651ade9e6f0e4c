package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records",
}

var listRalliesCmd = &cobra.Command{
	Use:   "rallies",
	Short: "List rallies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(func(ctx context.Context, s storage.Store) error {
			rallies, err := s.ListRallies(ctx)
			if err != nil {
				return err
			}
			printRallies(os.Stdout, rallies, time.Now())
			return nil
		})
	},
}

var listDriversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "List drivers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(func(ctx context.Context, s storage.Store) error {
			drivers, err := s.ListDrivers(ctx)
			if err != nil {
				return err
			}
			printDrivers(os.Stdout, drivers)
			return nil
		})
	},
}

var listCarsCmd = &cobra.Command{
	Use:   "cars",
	Short: "List cars",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(func(ctx context.Context, s storage.Store) error {
			cars, err := s.ListCars(ctx)
			if err != nil {
				return err
			}
			printCars(os.Stdout, cars)
			return nil
		})
	},
}

var listStagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List stages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(func(ctx context.Context, s storage.Store) error {
			stages, err := s.ListStages(ctx)
			if err != nil {
				return err
			}
			printStages(os.Stdout, stages)
			return nil
		})
	},
}

func init() {
	listCmd.AddCommand(listRalliesCmd, listDriversCmd, listCarsCmd, listStagesCmd)
}

func runList(list func(context.Context, storage.Store) error) error {
	cfg := mustConfig()
	store := mustStore(cfg, mustLogger(cfg))
	defer store.Close()

	if err := list(context.Background(), store); err != nil {
		fail(store, err)
	}
	return nil
}

// newTable returns a borderless table writer in the light style.
func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateRows = false
	return tbl
}

func printRallies(w io.Writer, rallies []model.Rally, now time.Time) {
	if len(rallies) == 0 {
		fmt.Fprintln(w, "No rallies found.")
		return
	}
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"ID", "Name", "Date", ""})
	for _, r := range rallies {
		tbl.AppendRow(table.Row{r.ID, r.Name, r.Date.Format(time.DateOnly), humanize.RelTime(r.Date, now, "ago", "from now")})
	}
	tbl.Render()
}

func printDrivers(w io.Writer, drivers []model.Driver) {
	if len(drivers) == 0 {
		fmt.Fprintln(w, "No drivers found.")
		return
	}
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"ID", "Name"})
	for _, d := range drivers {
		tbl.AppendRow(table.Row{d.ID, d.Name})
	}
	tbl.Render()
}

func printCars(w io.Writer, cars []model.Car) {
	if len(cars) == 0 {
		fmt.Fprintln(w, "No cars found.")
		return
	}
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"ID", "Name", "Class"})
	for _, c := range cars {
		tbl.AppendRow(table.Row{c.ID, c.Name, c.Class})
	}
	tbl.Render()
}

func printStages(w io.Writer, stages []model.Stage) {
	if len(stages) == 0 {
		fmt.Fprintln(w, "No stages found.")
		return
	}
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"ID", "Name", "Length"})
	for _, st := range stages {
		tbl.AppendRow(table.Row{st.ID, st.Name, humanize.FtoaWithDigits(st.LengthKM, 2) + " km"})
	}
	tbl.Render()
}
