// Package timingfeed imports stage times from a remote timing service.
package timingfeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/storage"
	"github.com/Tiliavir/rally-results/internal/timecalc"
)

// SyncResult holds counters for a sync operation.
type SyncResult struct {
	Imported int
	Skipped  int
	Errors   int
}

// SyncOptions configures a sync run.
type SyncOptions struct {
	RallyID int64
	DryRun  bool
	Logger  *slog.Logger
}

// shouldSkip returns true if the split carries no usable result.
func shouldSkip(s Split) bool {
	return strings.TrimSpace(s.Driver) == "" || strings.TrimSpace(s.Time) == ""
}

// entryKey identifies a result already present in a rally.
type entryKey struct {
	driver, stage, car int64
	stageNumber        string
	centis             int64
}

func keyOf(e model.TimingEntry, seconds float64) entryKey {
	return entryKey{
		driver:      e.DriverID,
		stage:       e.StageID,
		car:         e.CarID,
		stageNumber: e.StageNumber,
		centis:      int64(seconds*100 + 0.5),
	}
}

// MapSplit converts a split into a timing entry for rallyID. Record ids are
// left for the resolver to fill in.
func MapSplit(s Split, rallyID int64) (model.TimingEntry, float64, error) {
	seconds, err := timecalc.ParseDuration(s.Time)
	if err != nil {
		return model.TimingEntry{}, 0, err
	}
	stageNumber := strings.TrimSpace(s.StageNumber)
	if stageNumber == "" {
		stageNumber = strings.TrimSpace(s.Stage)
	}
	return model.TimingEntry{
		RallyID:     rallyID,
		StageNumber: stageNumber,
		Time:        strings.TrimSpace(s.Time),
	}, seconds, nil
}

// Sync maps splits onto timing entries of opts.RallyID. Drivers, cars and
// stages are matched by exact name and created when missing. Each entry
// already in the rally absorbs one split with the same values, so re-running
// a sync does not duplicate results while distinct splits with equal values
// are all kept. A split id repeated within one run is skipped. Per-split
// problems are counted in Errors; only failures that affect the whole run
// are returned.
func Sync(ctx context.Context, store storage.Store, splits []Split, opts SyncOptions) (SyncResult, error) {
	var result SyncResult
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if _, err := store.GetRally(ctx, opts.RallyID); err != nil {
		return result, err
	}

	r, err := newResolver(ctx, store, opts.DryRun)
	if err != nil {
		return result, err
	}

	existing, err := store.TimingEntriesForRally(ctx, opts.RallyID)
	if err != nil {
		return result, err
	}
	stored := make(map[entryKey]int, len(existing))
	for _, e := range existing {
		s, err := timecalc.ParseDuration(e.Time)
		if err != nil {
			continue
		}
		stored[keyOf(e, s)]++
	}
	splitIDs := make(map[string]bool, len(splits))

	for _, split := range splits {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if shouldSkip(split) {
			result.Skipped++
			continue
		}
		if split.ID != "" {
			if splitIDs[split.ID] {
				log.Debug("split repeated", "split", split.ID, "driver", split.Driver)
				result.Skipped++
				continue
			}
			splitIDs[split.ID] = true
		}

		entry, seconds, err := MapSplit(split, opts.RallyID)
		if err != nil {
			log.Warn("split rejected", "split", split.ID, "driver", split.Driver, "err", err)
			result.Errors++
			continue
		}

		if err := r.resolve(ctx, split, &entry); err != nil {
			log.Warn("split not resolvable", "split", split.ID, "driver", split.Driver, "err", err)
			result.Errors++
			continue
		}

		key := keyOf(entry, seconds)
		if stored[key] > 0 {
			stored[key]--
			log.Debug("split already imported", "split", split.ID, "driver", split.Driver)
			result.Skipped++
			continue
		}

		if opts.DryRun {
			if err := dryRunCheck(entry); err != nil {
				log.Warn("split invalid", "split", split.ID, "driver", split.Driver, "err", err)
				result.Errors++
				continue
			}
		} else {
			if err := store.CreateTimingEntry(ctx, &entry); err != nil {
				log.Warn("split not saved", "split", split.ID, "driver", split.Driver, "err", err)
				result.Errors++
				continue
			}
		}
		log.Info("split imported", "split", split.ID, "driver", split.Driver,
			"stage_number", entry.StageNumber, "time", timecalc.FormatSeconds(seconds), "dry_run", opts.DryRun)
		result.Imported++
	}

	return result, nil
}

// dryRunCheck validates e as the store would, standing in real ids for
// placeholders.
func dryRunCheck(e model.TimingEntry) error {
	for _, id := range []*int64{&e.DriverID, &e.CarID, &e.StageID} {
		if *id < 0 {
			*id = 1
		}
	}
	return e.Validate()
}

// resolver maps feed names to record ids, creating records on demand. In
// dry-run mode nothing is created and unknown names resolve to negative
// placeholder ids.
type resolver struct {
	store       storage.Store
	dryRun      bool
	placeholder int64

	drivers map[string]int64
	cars    map[string]int64
	stages  map[string]int64
}

func newResolver(ctx context.Context, store storage.Store, dryRun bool) (*resolver, error) {
	r := &resolver{
		store:   store,
		dryRun:  dryRun,
		drivers: make(map[string]int64),
		cars:    make(map[string]int64),
		stages:  make(map[string]int64),
	}

	drivers, err := store.ListDrivers(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range drivers {
		if _, ok := r.drivers[d.Name]; !ok {
			r.drivers[d.Name] = d.ID
		}
	}
	cars, err := store.ListCars(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cars {
		if _, ok := r.cars[c.Name]; !ok {
			r.cars[c.Name] = c.ID
		}
	}
	stages, err := store.ListStages(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range stages {
		if _, ok := r.stages[s.Name]; !ok {
			r.stages[s.Name] = s.ID
		}
	}
	return r, nil
}

var errNoName = errors.New("name is empty")

func (r *resolver) resolve(ctx context.Context, s Split, e *model.TimingEntry) error {
	var err error
	if e.DriverID, err = r.driver(ctx, strings.TrimSpace(s.Driver)); err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	if e.CarID, err = r.car(ctx, strings.TrimSpace(s.Car), strings.TrimSpace(s.CarClass)); err != nil {
		return fmt.Errorf("car: %w", err)
	}
	if e.StageID, err = r.stage(ctx, strings.TrimSpace(s.Stage), s.StageLengthKM); err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	return nil
}

func (r *resolver) next() int64 {
	r.placeholder--
	return r.placeholder
}

func (r *resolver) driver(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, errNoName
	}
	if id, ok := r.drivers[name]; ok {
		return id, nil
	}
	d := model.Driver{Name: name}
	if err := r.create(func() error { return r.store.CreateDriver(ctx, &d) }, d.Validate, &d.ID); err != nil {
		return 0, err
	}
	r.drivers[name] = d.ID
	return d.ID, nil
}

func (r *resolver) car(ctx context.Context, name, class string) (int64, error) {
	if name == "" {
		return 0, errNoName
	}
	if id, ok := r.cars[name]; ok {
		return id, nil
	}
	c := model.Car{Name: name, Class: class}
	if err := r.create(func() error { return r.store.CreateCar(ctx, &c) }, c.Validate, &c.ID); err != nil {
		return 0, err
	}
	r.cars[name] = c.ID
	return c.ID, nil
}

func (r *resolver) stage(ctx context.Context, name string, lengthKM float64) (int64, error) {
	if name == "" {
		return 0, errNoName
	}
	if id, ok := r.stages[name]; ok {
		return id, nil
	}
	st := model.Stage{Name: name, LengthKM: lengthKM}
	if err := r.create(func() error { return r.store.CreateStage(ctx, &st) }, st.Validate, &st.ID); err != nil {
		return 0, err
	}
	r.stages[name] = st.ID
	return st.ID, nil
}

// create persists a record, or in dry-run mode only validates it and hands
// out a placeholder id.
func (r *resolver) create(persist func() error, validate func() error, id *int64) error {
	if r.dryRun {
		if err := validate(); err != nil {
			return err
		}
		*id = r.next()
		return nil
	}
	return persist()
}
