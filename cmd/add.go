package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/storage"
)

var (
	addCarClass     string
	addStageLength  float64
	addRallyDate    string
	addTimeRally    int64
	addTimeDriver   int64
	addTimeStage    int64
	addTimeCar      int64
	addTimeStageNum string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a driver, car, stage, rally or stage time",
}

var addDriverCmd = &cobra.Command{
	Use:   "driver <name>",
	Short: "Add a driver",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAdd(storage.KindDriver, func(ctx context.Context, s storage.Store) (int64, error) {
			d := model.Driver{Name: args[0]}
			err := s.CreateDriver(ctx, &d)
			return d.ID, err
		})
	},
}

var addCarCmd = &cobra.Command{
	Use:   "car <name>",
	Short: "Add a car",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAdd(storage.KindCar, func(ctx context.Context, s storage.Store) (int64, error) {
			c := model.Car{Name: args[0], Class: addCarClass}
			err := s.CreateCar(ctx, &c)
			return c.ID, err
		})
	},
}

var addStageCmd = &cobra.Command{
	Use:   "stage <name>",
	Short: "Add a stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAdd(storage.KindStage, func(ctx context.Context, s storage.Store) (int64, error) {
			st := model.Stage{Name: args[0], LengthKM: addStageLength}
			err := s.CreateStage(ctx, &st)
			return st.ID, err
		})
	},
}

var addRallyCmd = &cobra.Command{
	Use:   "rally <name>",
	Short: "Add a rally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := model.Rally{Name: args[0]}
		if addRallyDate != "" {
			d, err := time.Parse(time.DateOnly, addRallyDate)
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid --date value %q: %v\n", addRallyDate, err)
				os.Exit(1)
			}
			r.Date = d
		}
		return runAdd(storage.KindRally, func(ctx context.Context, s storage.Store) (int64, error) {
			err := s.CreateRally(ctx, &r)
			return r.ID, err
		})
	},
}

var addTimeCmd = &cobra.Command{
	Use:   "time <H:MM:SS.ff>",
	Short: "Record a driver's time on a stage of a rally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAdd(storage.KindEntry, func(ctx context.Context, s storage.Store) (int64, error) {
			e := model.TimingEntry{
				RallyID:     addTimeRally,
				DriverID:    addTimeDriver,
				StageID:     addTimeStage,
				CarID:       addTimeCar,
				StageNumber: addTimeStageNum,
				Time:        args[0],
			}
			err := s.CreateTimingEntry(ctx, &e)
			return e.ID, err
		})
	},
}

func init() {
	addCarCmd.Flags().StringVar(&addCarClass, "class", "", "Car class, e.g. WRC or R5")
	_ = addCarCmd.MarkFlagRequired("class")

	addStageCmd.Flags().Float64Var(&addStageLength, "length", 0, "Stage length in km")
	_ = addStageCmd.MarkFlagRequired("length")

	addRallyCmd.Flags().StringVar(&addRallyDate, "date", "", "Rally date (YYYY-MM-DD); defaults to now")

	addTimeCmd.Flags().Int64Var(&addTimeRally, "rally", 0, "Rally id")
	addTimeCmd.Flags().Int64Var(&addTimeDriver, "driver", 0, "Driver id")
	addTimeCmd.Flags().Int64Var(&addTimeStage, "stage", 0, "Stage id")
	addTimeCmd.Flags().Int64Var(&addTimeCar, "car", 0, "Car id")
	addTimeCmd.Flags().StringVar(&addTimeStageNum, "stage-number", "", "Stage label within the rally, e.g. SS1")
	for _, name := range []string{"rally", "driver", "stage", "car", "stage-number"} {
		_ = addTimeCmd.MarkFlagRequired(name)
	}

	addCmd.AddCommand(addDriverCmd, addCarCmd, addStageCmd, addRallyCmd, addTimeCmd)
}

// runAdd opens the store, runs create and prints the new id.
func runAdd(kind string, create func(context.Context, storage.Store) (int64, error)) error {
	cfg := mustConfig()
	store := mustStore(cfg, mustLogger(cfg))
	defer store.Close()

	id, err := create(context.Background(), store)
	if err != nil {
		fail(store, err)
	}

	fmt.Printf("Added %s %d\n", kind, id)
	return nil
}
