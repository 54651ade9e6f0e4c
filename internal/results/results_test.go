package results_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/results"
	"github.com/Tiliavir/rally-results/internal/storage"
	"github.com/Tiliavir/rally-results/internal/storage/sqlstore"
	"github.com/Tiliavir/rally-results/internal/storage/storagetest"
	"github.com/Tiliavir/rally-results/internal/timecalc"
)

func newStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := sqlstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func addEntries(t *testing.T, s storage.Store, entries ...model.TimingEntry) []model.TimingEntry {
	t.Helper()
	for i := range entries {
		require.NoError(t, s.CreateTimingEntry(context.Background(), &entries[i]))
	}
	return entries
}

func driverNames(entries []results.RankedEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Driver.Name
	}
	return names
}

func TestRallyResultsRanksFasterFirst(t *testing.T) {
	s := newStore(t)
	f := storagetest.Seed(t, s)
	addEntries(t, s,
		f.Entry(f.DriverA, "1", "0:01:30.00"),
		f.Entry(f.DriverB, "1", "0:01:25.50"),
	)

	got, err := results.NewAggregator(s).RallyResults(context.Background(), f.Rally.ID)
	require.NoError(t, err)

	assert.Equal(t, f.Rally.ID, got.Rally.ID)
	require.Len(t, got.Stages, 1)
	stage := got.Stages[0]
	assert.Equal(t, "1", stage.StageNumber)
	assert.Equal(t, "SS1", stage.StageName)
	assert.Equal(t, []string{"B", "A"}, driverNames(stage.Entries))

	leader, second := stage.Entries[0], stage.Entries[1]
	assert.Equal(t, 1, leader.Position)
	assert.InDelta(t, 85.5, leader.Seconds, 1e-9)
	assert.Zero(t, leader.Gap)
	assert.Equal(t, "C1", leader.Car.Name)
	assert.Equal(t, 2, second.Position)
	assert.InDelta(t, 4.5, second.Gap, 1e-9)
}

func TestRallyResultsComparesNumerically(t *testing.T) {
	s := newStore(t)
	f := storagetest.Seed(t, s)
	addEntries(t, s,
		f.Entry(f.DriverA, "SS1", "1:00:00.00"),
		f.Entry(f.DriverB, "SS1", "0:59:00.00"),
	)

	got, err := results.NewAggregator(s).RallyResults(context.Background(), f.Rally.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, driverNames(got.Stages[0].Entries))
}

func TestRallyResultsTiesKeepInsertionOrder(t *testing.T) {
	s := newStore(t)
	f := storagetest.Seed(t, s)
	entries := addEntries(t, s,
		f.Entry(f.DriverA, "1", "0:02:00.00"),
		f.Entry(f.DriverB, "1", "0:01:00.00"),
		f.Entry(f.DriverB, "1", "0:02:00.00"),
	)

	got, err := results.NewAggregator(s).RallyResults(context.Background(), f.Rally.ID)
	require.NoError(t, err)

	ranked := got.Stages[0].Entries
	require.Len(t, ranked, 3)
	assert.Equal(t, entries[1].ID, ranked[0].Entry.ID)
	assert.Equal(t, entries[0].ID, ranked[1].Entry.ID)
	assert.Equal(t, entries[2].ID, ranked[2].Entry.ID)
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Position, ranked[1].Position, ranked[2].Position})
}

func TestRallyResultsGroupsInFirstSeenOrder(t *testing.T) {
	s := newStore(t)
	f := storagetest.Seed(t, s)
	addEntries(t, s,
		f.Entry(f.DriverA, "2", "0:03:00.00"),
		f.Entry(f.DriverA, "1", "0:01:00.00"),
		f.Entry(f.DriverB, "2", "0:02:00.00"),
	)

	got, err := results.NewAggregator(s).RallyResults(context.Background(), f.Rally.ID)
	require.NoError(t, err)

	require.Len(t, got.Stages, 2)
	assert.Equal(t, "2", got.Stages[0].StageNumber)
	assert.Equal(t, "1", got.Stages[1].StageNumber)
	assert.Equal(t, []string{"B", "A"}, driverNames(got.Stages[0].Entries))
	assert.Len(t, got.Stages[1].Entries, 1)
}

func TestRallyResultsStageNameFromFirstEntry(t *testing.T) {
	s := newStore(t)
	f := storagetest.Seed(t, s)
	other := model.Stage{Name: "Ouninpohja", LengthKM: 33}
	require.NoError(t, s.CreateStage(context.Background(), &other))

	second := f.Entry(f.DriverB, "1", "0:01:00.00")
	second.StageID = other.ID
	addEntries(t, s, f.Entry(f.DriverA, "1", "0:02:00.00"), second)

	got, err := results.NewAggregator(s).RallyResults(context.Background(), f.Rally.ID)
	require.NoError(t, err)
	require.Len(t, got.Stages, 1)
	assert.Equal(t, "SS1", got.Stages[0].StageName)
}

func TestRallyResultsKeepsDuplicates(t *testing.T) {
	s := newStore(t)
	f := storagetest.Seed(t, s)
	addEntries(t, s,
		f.Entry(f.DriverA, "1", "0:01:00.00"),
		f.Entry(f.DriverA, "1", "0:01:00.00"),
	)

	got, err := results.NewAggregator(s).RallyResults(context.Background(), f.Rally.ID)
	require.NoError(t, err)
	assert.Len(t, got.Stages[0].Entries, 2)
}

func TestRallyResultsEmptyRally(t *testing.T) {
	s := newStore(t)
	f := storagetest.Seed(t, s)

	got, err := results.NewAggregator(s).RallyResults(context.Background(), f.Rally.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Stages)
}

func TestRallyResultsMissingRally(t *testing.T) {
	s := newStore(t)

	_, err := results.NewAggregator(s).RallyResults(context.Background(), 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// badTimeStore serves an extra entry whose time never went through
// validation, as legacy rows might.
type badTimeStore struct {
	storage.Store
	extra model.TimingEntry
}

func (b badTimeStore) TimingEntriesForRally(ctx context.Context, rallyID int64) ([]model.TimingEntry, error) {
	entries, err := b.Store.TimingEntriesForRally(ctx, rallyID)
	if err != nil {
		return nil, err
	}
	return append(entries, b.extra), nil
}

func TestMalformedTimeAbortsEverything(t *testing.T) {
	s := newStore(t)
	f := storagetest.Seed(t, s)
	addEntries(t, s, f.Entry(f.DriverA, "1", "0:01:00.00"))

	bad := f.Entry(f.DriverB, "1", "1:30.00")
	bad.ID = 42
	agg := results.NewAggregator(badTimeStore{Store: s, extra: bad})

	got, err := agg.RallyResults(context.Background(), f.Rally.ID)
	require.ErrorIs(t, err, timecalc.ErrFormat)
	var fe *timecalc.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "1:30.00", fe.Input)
	assert.Empty(t, got.Stages)

	series, err := agg.DriverTimeSeries(context.Background(), f.Rally.ID)
	assert.ErrorIs(t, err, timecalc.ErrFormat)
	assert.Nil(t, series)
}

func TestDanglingReferenceFails(t *testing.T) {
	s := newStore(t)
	f := storagetest.Seed(t, s)

	orphan := f.Entry(f.DriverA, "1", "0:01:00.00")
	orphan.DriverID = 404
	agg := results.NewAggregator(badTimeStore{Store: s, extra: orphan})

	_, err := agg.RallyResults(context.Background(), f.Rally.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = agg.DriverTimeSeries(context.Background(), f.Rally.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDriverTimeSeries(t *testing.T) {
	s := newStore(t)
	f := storagetest.Seed(t, s)
	addEntries(t, s,
		f.Entry(f.DriverB, "1", "0:02:00.00"),
		f.Entry(f.DriverA, "1", "0:01:30.50"),
		f.Entry(f.DriverB, "2", "0:01:00.00"),
		f.Entry(f.DriverB, "3", "0:03:00.00"),
	)

	series, err := results.NewAggregator(s).DriverTimeSeries(context.Background(), f.Rally.ID)
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, "B", series[0].Driver.Name)
	assert.Equal(t, []float64{120, 60, 180}, series[0].Times)
	assert.Equal(t, "A", series[1].Driver.Name)
	assert.Equal(t, []float64{90.5}, series[1].Times)
}

func TestDriverTimeSeriesOtherRallyExcluded(t *testing.T) {
	s := newStore(t)
	f := storagetest.Seed(t, s)
	other := model.Rally{Name: "Other"}
	require.NoError(t, s.CreateRally(context.Background(), &other))

	foreign := f.Entry(f.DriverA, "1", "0:01:00.00")
	foreign.RallyID = other.ID
	addEntries(t, s, foreign, f.Entry(f.DriverB, "1", "0:01:00.00"))

	series, err := results.NewAggregator(s).DriverTimeSeries(context.Background(), f.Rally.ID)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "B", series[0].Driver.Name)
}

func TestDriverTimeSeriesMissingRally(t *testing.T) {
	s := newStore(t)

	_, err := results.NewAggregator(s).DriverTimeSeries(context.Background(), 7)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
