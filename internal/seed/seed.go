// Package seed loads drivers, cars, stages, rallies and their times from a
// YAML fixture. Times reference the other records by name.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/storage"
)

// File is the YAML fixture layout.
type File struct {
	Drivers []model.Driver `yaml:"drivers"`
	Cars    []model.Car    `yaml:"cars"`
	Stages  []model.Stage  `yaml:"stages"`
	Rallies []Rally        `yaml:"rallies"`
}

// Rally is a rally with its times.
type Rally struct {
	Name  string    `yaml:"name"`
	Date  time.Time `yaml:"date"`
	Times []Time    `yaml:"times"`
}

// Time is one timing entry; driver, car and stage are names.
type Time struct {
	Driver      string `yaml:"driver"`
	Car         string `yaml:"car"`
	Stage       string `yaml:"stage"`
	StageNumber string `yaml:"stage_number"`
	Time        string `yaml:"time"`
}

// Summary counts the records created by Apply.
type Summary struct {
	Drivers int
	Cars    int
	Stages  int
	Rallies int
	Times   int
}

// ErrUnknownName is returned when a time references a name that is neither
// in the fixture nor in the store.
var ErrUnknownName = errors.New("unknown name")

// Load decodes a fixture. Unknown keys are rejected.
func Load(r io.Reader) (File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, errors.New("seed file is empty")
		}
		return File{}, fmt.Errorf("decode seed file: %w", err)
	}
	return f, nil
}

// Apply creates the fixture's records in dependency order. Drivers, cars and
// stages whose name already exists in the store are reused rather than
// duplicated. Each record is its own transaction, so a failure part-way
// leaves the records created before it.
func Apply(ctx context.Context, store storage.Store, f File, log *slog.Logger) (Summary, error) {
	var sum Summary
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	drivers, cars, stages, err := existingNames(ctx, store)
	if err != nil {
		return sum, err
	}

	for _, d := range f.Drivers {
		if _, ok := drivers[d.Name]; ok {
			continue
		}
		if err := store.CreateDriver(ctx, &d); err != nil {
			return sum, fmt.Errorf("driver %q: %w", d.Name, err)
		}
		drivers[d.Name] = d.ID
		sum.Drivers++
	}
	for _, c := range f.Cars {
		if _, ok := cars[c.Name]; ok {
			continue
		}
		if err := store.CreateCar(ctx, &c); err != nil {
			return sum, fmt.Errorf("car %q: %w", c.Name, err)
		}
		cars[c.Name] = c.ID
		sum.Cars++
	}
	for _, st := range f.Stages {
		if _, ok := stages[st.Name]; ok {
			continue
		}
		if err := store.CreateStage(ctx, &st); err != nil {
			return sum, fmt.Errorf("stage %q: %w", st.Name, err)
		}
		stages[st.Name] = st.ID
		sum.Stages++
	}

	for _, r := range f.Rallies {
		rally := model.Rally{Name: r.Name, Date: r.Date}
		if err := store.CreateRally(ctx, &rally); err != nil {
			return sum, fmt.Errorf("rally %q: %w", r.Name, err)
		}
		sum.Rallies++
		log.Info("seeded rally", "id", rally.ID, "name", rally.Name, "times", len(r.Times))

		for i, t := range r.Times {
			e := model.TimingEntry{
				RallyID:     rally.ID,
				StageNumber: t.StageNumber,
				Time:        t.Time,
			}
			if e.DriverID, err = lookup(drivers, "driver", t.Driver); err == nil {
				if e.CarID, err = lookup(cars, "car", t.Car); err == nil {
					e.StageID, err = lookup(stages, "stage", t.Stage)
				}
			}
			if err != nil {
				return sum, fmt.Errorf("rally %q time %d: %w", r.Name, i+1, err)
			}
			if err := store.CreateTimingEntry(ctx, &e); err != nil {
				return sum, fmt.Errorf("rally %q time %d: %w", r.Name, i+1, err)
			}
			sum.Times++
		}
	}
	return sum, nil
}

func lookup(names map[string]int64, kind, name string) (int64, error) {
	id, ok := names[name]
	if !ok {
		return 0, fmt.Errorf("%s %q: %w", kind, name, ErrUnknownName)
	}
	return id, nil
}

func existingNames(ctx context.Context, store storage.Store) (drivers, cars, stages map[string]int64, err error) {
	drivers, cars, stages = map[string]int64{}, map[string]int64{}, map[string]int64{}

	ds, err := store.ListDrivers(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, d := range ds {
		if _, ok := drivers[d.Name]; !ok {
			drivers[d.Name] = d.ID
		}
	}
	cs, err := store.ListCars(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, c := range cs {
		if _, ok := cars[c.Name]; !ok {
			cars[c.Name] = c.ID
		}
	}
	ss, err := store.ListStages(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, s := range ss {
		if _, ok := stages[s.Name]; !ok {
			stages[s.Name] = s.ID
		}
	}
	return drivers, cars, stages, nil
}
