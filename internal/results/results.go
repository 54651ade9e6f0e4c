// Package results turns a rally's stored timing entries into per-stage
// leaderboards and per-driver time series.
package results

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/storage"
	"github.com/Tiliavir/rally-results/internal/timecalc"
)

// RankedEntry is one row of a stage leaderboard.
type RankedEntry struct {
	// Position is 1-based. Equal times keep fetch order and still get
	// consecutive positions.
	Position int               `json:"position"`
	Entry    model.TimingEntry `json:"entry"`
	Driver   model.Driver      `json:"driver"`
	Car      model.Car         `json:"car"`
	Seconds  float64           `json:"seconds"`
	// Gap to the stage leader in seconds; zero for the leader.
	Gap float64 `json:"gap"`
}

// StageResults is the leaderboard of one stage_number group.
type StageResults struct {
	StageNumber string        `json:"stage_number"`
	StageName   string        `json:"stage_name"`
	Entries     []RankedEntry `json:"entries"`
}

// RallyResults holds a rally and its stage groups in first-seen order.
type RallyResults struct {
	Rally  model.Rally    `json:"rally"`
	Stages []StageResults `json:"stages"`
}

// DriverSeries is one driver's decoded times in fetch order.
type DriverSeries struct {
	Driver model.Driver `json:"driver"`
	Times  []float64    `json:"times"`
}

// Aggregator reads from a store and builds result views.
type Aggregator struct {
	store storage.Store
}

// NewAggregator returns an Aggregator reading from store.
func NewAggregator(store storage.Store) *Aggregator {
	return &Aggregator{store: store}
}

// RallyResults groups the rally's entries by stage_number and ranks each
// group ascending by elapsed time. A single malformed time fails the whole
// call with a *timecalc.FormatError; nothing is partially returned.
func (a *Aggregator) RallyResults(ctx context.Context, rallyID int64) (RallyResults, error) {
	rally, err := a.store.GetRally(ctx, rallyID)
	if err != nil {
		return RallyResults{}, err
	}

	entries, err := a.store.TimingEntriesForRally(ctx, rallyID)
	if err != nil {
		return RallyResults{}, err
	}

	seconds, err := decodeAll(entries)
	if err != nil {
		return RallyResults{}, err
	}

	stages, err := resolve(ctx, entries, a.store.LookupStages, storage.KindStage, func(e model.TimingEntry) int64 { return e.StageID })
	if err != nil {
		return RallyResults{}, err
	}
	drivers, err := resolve(ctx, entries, a.store.LookupDrivers, storage.KindDriver, func(e model.TimingEntry) int64 { return e.DriverID })
	if err != nil {
		return RallyResults{}, err
	}
	cars, err := resolve(ctx, entries, a.store.LookupCars, storage.KindCar, func(e model.TimingEntry) int64 { return e.CarID })
	if err != nil {
		return RallyResults{}, err
	}

	out := RallyResults{Rally: rally, Stages: []StageResults{}}
	groupIdx := make(map[string]int)
	for i, e := range entries {
		idx, ok := groupIdx[e.StageNumber]
		if !ok {
			idx = len(out.Stages)
			groupIdx[e.StageNumber] = idx
			out.Stages = append(out.Stages, StageResults{
				StageNumber: e.StageNumber,
				StageName:   stages[e.StageID].Name,
			})
		}
		out.Stages[idx].Entries = append(out.Stages[idx].Entries, RankedEntry{
			Entry:   e,
			Driver:  drivers[e.DriverID],
			Car:     cars[e.CarID],
			Seconds: seconds[i],
		})
	}

	for i := range out.Stages {
		rank(out.Stages[i].Entries)
	}
	return out, nil
}

// rank stable-sorts a group by time and fills Position and Gap.
func rank(entries []RankedEntry) {
	slices.SortStableFunc(entries, func(a, b RankedEntry) int {
		return cmp.Compare(a.Seconds, b.Seconds)
	})
	for i := range entries {
		entries[i].Position = i + 1
		entries[i].Gap = entries[i].Seconds - entries[0].Seconds
	}
}

// DriverTimeSeries collects decoded times per driver, drivers in
// first-seen order and times in fetch order. An unresolvable driver or a
// malformed time fails the whole call.
func (a *Aggregator) DriverTimeSeries(ctx context.Context, rallyID int64) ([]DriverSeries, error) {
	if _, err := a.store.GetRally(ctx, rallyID); err != nil {
		return nil, err
	}

	entries, err := a.store.TimingEntriesForRally(ctx, rallyID)
	if err != nil {
		return nil, err
	}

	seconds, err := decodeAll(entries)
	if err != nil {
		return nil, err
	}

	drivers, err := resolve(ctx, entries, a.store.LookupDrivers, storage.KindDriver, func(e model.TimingEntry) int64 { return e.DriverID })
	if err != nil {
		return nil, err
	}

	series := []DriverSeries{}
	seriesIdx := make(map[int64]int)
	for i, e := range entries {
		idx, ok := seriesIdx[e.DriverID]
		if !ok {
			idx = len(series)
			seriesIdx[e.DriverID] = idx
			series = append(series, DriverSeries{Driver: drivers[e.DriverID]})
		}
		series[idx].Times = append(series[idx].Times, seconds[i])
	}
	return series, nil
}

func decodeAll(entries []model.TimingEntry) ([]float64, error) {
	out := make([]float64, len(entries))
	for i, e := range entries {
		s, err := timecalc.ParseDuration(e.Time)
		if err != nil {
			return nil, fmt.Errorf("timing entry %d: %w", e.ID, err)
		}
		out[i] = s
	}
	return out, nil
}

// resolve batch-loads the records referenced by entries and fails with
// NotFound if any of them is missing.
func resolve[M any](ctx context.Context, entries []model.TimingEntry, lookup func(context.Context, []int64) (map[int64]M, error), kind string, ref func(model.TimingEntry) int64) (map[int64]M, error) {
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, ref(e))
	}
	ids = storage.UniqueIDs(ids)

	found, err := lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, storage.NotFound(kind, id)
		}
	}
	return found, nil
}
