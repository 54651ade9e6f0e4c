// Package storagetest holds the behavioural test-suite every storage.Store
// backend must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/storage"
)

// Opener returns a fresh, empty store. The suite closes it.
type Opener func(t *testing.T) storage.Store

// Fixture is a small set of persisted records to hang timing entries on.
type Fixture struct {
	Rally   model.Rally
	Stage   model.Stage
	Car     model.Car
	DriverA model.Driver
	DriverB model.Driver
}

// Seed creates one rally, stage and car plus two drivers.
func Seed(t *testing.T, s storage.Store) Fixture {
	t.Helper()
	ctx := context.Background()

	f := Fixture{
		Rally:   model.Rally{Name: "Test Rally"},
		Stage:   model.Stage{Name: "SS1", LengthKM: 5.0},
		Car:     model.Car{Name: "C1", Class: "R5"},
		DriverA: model.Driver{Name: "A"},
		DriverB: model.Driver{Name: "B"},
	}
	require.NoError(t, s.CreateRally(ctx, &f.Rally))
	require.NoError(t, s.CreateStage(ctx, &f.Stage))
	require.NoError(t, s.CreateCar(ctx, &f.Car))
	require.NoError(t, s.CreateDriver(ctx, &f.DriverA))
	require.NoError(t, s.CreateDriver(ctx, &f.DriverB))
	return f
}

// Entry builds a timing entry against the fixture.
func (f Fixture) Entry(driver model.Driver, stageNumber, elapsed string) model.TimingEntry {
	return model.TimingEntry{
		RallyID:     f.Rally.ID,
		DriverID:    driver.ID,
		StageID:     f.Stage.ID,
		CarID:       f.Car.ID,
		StageNumber: stageNumber,
		Time:        elapsed,
	}
}

// Run executes the suite against stores produced by open.
func Run(t *testing.T, open Opener) {
	fresh := func(t *testing.T) storage.Store {
		t.Helper()
		s := open(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("CreateAssignsAscendingIDs", func(t *testing.T) {
		s := fresh(t)
		ctx := context.Background()

		names := []string{"Kankkunen", "Mäkinen", "Grönholm"}
		for _, n := range names {
			d := model.Driver{Name: n}
			require.NoError(t, s.CreateDriver(ctx, &d))
			assert.Positive(t, d.ID)
		}

		drivers, err := s.ListDrivers(ctx)
		require.NoError(t, err)
		require.Len(t, drivers, len(names))
		for i, d := range drivers {
			assert.Equal(t, names[i], d.Name)
			if i > 0 {
				assert.Greater(t, d.ID, drivers[i-1].ID)
			}
		}
	})

	t.Run("ListEmpty", func(t *testing.T) {
		s := fresh(t)
		ctx := context.Background()

		rallies, err := s.ListRallies(ctx)
		require.NoError(t, err)
		assert.Empty(t, rallies)
		cars, err := s.ListCars(ctx)
		require.NoError(t, err)
		assert.Empty(t, cars)
	})

	t.Run("GetRoundTrip", func(t *testing.T) {
		s := fresh(t)
		ctx := context.Background()
		f := Seed(t, s)

		car, err := s.GetCar(ctx, f.Car.ID)
		require.NoError(t, err)
		assert.Equal(t, f.Car, car)

		stage, err := s.GetStage(ctx, f.Stage.ID)
		require.NoError(t, err)
		assert.Equal(t, f.Stage, stage)

		driver, err := s.GetDriver(ctx, f.DriverB.ID)
		require.NoError(t, err)
		assert.Equal(t, "B", driver.Name)

		rally, err := s.GetRally(ctx, f.Rally.ID)
		require.NoError(t, err)
		assert.Equal(t, "Test Rally", rally.Name)
		assert.WithinDuration(t, f.Rally.Date, rally.Date, time.Second)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := fresh(t)
		ctx := context.Background()

		_, err := s.GetRally(ctx, 42)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.GetDriver(ctx, 42)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.GetCar(ctx, 42)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.GetStage(ctx, 42)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("RallyDateDefaultsToNow", func(t *testing.T) {
		s := fresh(t)
		ctx := context.Background()

		before := time.Now().UTC().Add(-time.Second)
		r := model.Rally{Name: "Rally Finland"}
		require.NoError(t, s.CreateRally(ctx, &r))
		after := time.Now().UTC().Add(time.Second)

		got, err := s.GetRally(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, got.Date.After(before) && got.Date.Before(after), "date %v not in [%v, %v]", got.Date, before, after)
	})

	t.Run("RallyDateKept", func(t *testing.T) {
		s := fresh(t)
		ctx := context.Background()

		date := time.Date(1990, 8, 24, 0, 0, 0, 0, time.UTC)
		r := model.Rally{Name: "1000 Lakes", Date: date}
		require.NoError(t, s.CreateRally(ctx, &r))

		got, err := s.GetRally(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, date.Equal(got.Date), "date = %v, want %v", got.Date, date)
	})

	t.Run("ValidationWritesNothing", func(t *testing.T) {
		s := fresh(t)
		ctx := context.Background()

		err := s.CreateStage(ctx, &model.Stage{Name: "SS1", LengthKM: -1})
		assert.ErrorIs(t, err, model.ErrValidation)
		err = s.CreateDriver(ctx, &model.Driver{})
		assert.ErrorIs(t, err, model.ErrValidation)

		stages, err := s.ListStages(ctx)
		require.NoError(t, err)
		assert.Empty(t, stages)
		drivers, err := s.ListDrivers(ctx)
		require.NoError(t, err)
		assert.Empty(t, drivers)
	})

	t.Run("TimingEntryReferencesChecked", func(t *testing.T) {
		s := fresh(t)
		ctx := context.Background()
		f := Seed(t, s)

		cases := map[string]func(e *model.TimingEntry){
			storage.KindRally:  func(e *model.TimingEntry) { e.RallyID = 999 },
			storage.KindDriver: func(e *model.TimingEntry) { e.DriverID = 999 },
			storage.KindStage:  func(e *model.TimingEntry) { e.StageID = 999 },
			storage.KindCar:    func(e *model.TimingEntry) { e.CarID = 999 },
		}
		for kind, mutate := range cases {
			e := f.Entry(f.DriverA, "SS1", "0:01:30.00")
			mutate(&e)
			err := s.CreateTimingEntry(ctx, &e)
			require.Error(t, err, kind)
			assert.ErrorIs(t, err, storage.ErrNotFound)
			var refErr *storage.ReferenceError
			require.True(t, errors.As(err, &refErr), "%T", err)
			assert.Equal(t, kind, refErr.Kind)
			assert.EqualValues(t, 999, refErr.ID)
			assert.Zero(t, e.ID)
		}

		entries, err := s.TimingEntriesForRally(ctx, f.Rally.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("TimingEntryValidation", func(t *testing.T) {
		s := fresh(t)
		ctx := context.Background()
		f := Seed(t, s)

		e := f.Entry(f.DriverA, "SS1", "1:30")
		err := s.CreateTimingEntry(ctx, &e)
		assert.ErrorIs(t, err, model.ErrValidation)

		entries, err := s.TimingEntriesForRally(ctx, f.Rally.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("TimingEntriesForRally", func(t *testing.T) {
		s := fresh(t)
		ctx := context.Background()
		f := Seed(t, s)

		other := model.Rally{Name: "Other"}
		require.NoError(t, s.CreateRally(ctx, &other))

		want := []model.TimingEntry{
			f.Entry(f.DriverA, "2", "0:02:00.00"),
			f.Entry(f.DriverB, "1", "0:01:00.00"),
			f.Entry(f.DriverA, "2", "0:02:00.00"),
		}
		for i := range want {
			require.NoError(t, s.CreateTimingEntry(ctx, &want[i]))
			noise := f.Entry(f.DriverB, "1", "0:00:10.00")
			noise.RallyID = other.ID
			require.NoError(t, s.CreateTimingEntry(ctx, &noise))
		}

		got, err := s.TimingEntriesForRally(ctx, f.Rally.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		none, err := s.TimingEntriesForRally(ctx, 12345)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Lookup", func(t *testing.T) {
		s := fresh(t)
		ctx := context.Background()
		f := Seed(t, s)

		drivers, err := s.LookupDrivers(ctx, []int64{f.DriverB.ID, 999, f.DriverA.ID, f.DriverB.ID})
		require.NoError(t, err)
		assert.Equal(t, map[int64]model.Driver{
			f.DriverA.ID: f.DriverA,
			f.DriverB.ID: f.DriverB,
		}, drivers)

		stages, err := s.LookupStages(ctx, []int64{f.Stage.ID})
		require.NoError(t, err)
		assert.Equal(t, f.Stage, stages[f.Stage.ID])

		cars, err := s.LookupCars(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, cars)
	})
}
