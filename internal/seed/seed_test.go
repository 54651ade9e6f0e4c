package seed_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/results"
	"github.com/Tiliavir/rally-results/internal/seed"
	"github.com/Tiliavir/rally-results/internal/storage"
	"github.com/Tiliavir/rally-results/internal/storage/sqlstore"
)

const fixture = `
drivers:
  - name: A
  - name: B
cars:
  - name: C1
    class: R5
stages:
  - name: SS1
    length_km: 5.0
rallies:
  - name: Test Rally
    date: 2024-05-18
    times:
      - {driver: A, car: C1, stage: SS1, stage_number: "1", time: "0:01:30.00"}
      - {driver: B, car: C1, stage: SS1, stage_number: "1", time: "0:01:25.50"}
`

func newStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := sqlstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoad(t *testing.T) {
	t.Parallel()

	f, err := seed.Load(strings.NewReader(fixture))
	require.NoError(t, err)

	assert.Len(t, f.Drivers, 2)
	assert.Equal(t, model.Car{Name: "C1", Class: "R5"}, f.Cars[0])
	assert.InDelta(t, 5.0, f.Stages[0].LengthKM, 1e-9)
	require.Len(t, f.Rallies, 1)
	assert.Equal(t, time.Date(2024, 5, 18, 0, 0, 0, 0, time.UTC), f.Rallies[0].Date)
	assert.Equal(t, "0:01:25.50", f.Rallies[0].Times[1].Time)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := seed.Load(strings.NewReader("drivers:\n  - nme: A\n"))
	assert.Error(t, err)
}

func TestLoadEmpty(t *testing.T) {
	t.Parallel()

	_, err := seed.Load(strings.NewReader(""))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	f, err := seed.Load(strings.NewReader(fixture))
	require.NoError(t, err)

	sum, err := seed.Apply(ctx, s, f, nil)
	require.NoError(t, err)
	assert.Equal(t, seed.Summary{Drivers: 2, Cars: 1, Stages: 1, Rallies: 1, Times: 2}, sum)

	rallies, err := s.ListRallies(ctx)
	require.NoError(t, err)
	require.Len(t, rallies, 1)

	res, err := results.NewAggregator(s).RallyResults(ctx, rallies[0].ID)
	require.NoError(t, err)
	require.Len(t, res.Stages, 1)
	assert.Equal(t, "B", res.Stages[0].Entries[0].Driver.Name)
}

func TestApplyReusesExistingNames(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	f, err := seed.Load(strings.NewReader(fixture))
	require.NoError(t, err)

	_, err = seed.Apply(ctx, s, f, nil)
	require.NoError(t, err)
	sum, err := seed.Apply(ctx, s, f, nil)
	require.NoError(t, err)

	assert.Equal(t, seed.Summary{Rallies: 1, Times: 2}, sum)
	drivers, err := s.ListDrivers(ctx)
	require.NoError(t, err)
	assert.Len(t, drivers, 2)
}

func TestApplyUnknownName(t *testing.T) {
	s := newStore(t)

	f := seed.File{
		Rallies: []seed.Rally{{
			Name:  "Ghost Rally",
			Times: []seed.Time{{Driver: "Nobody", Car: "C1", Stage: "SS1", StageNumber: "1", Time: "0:01:00.00"}},
		}},
	}
	_, err := seed.Apply(context.Background(), s, f, nil)
	require.ErrorIs(t, err, seed.ErrUnknownName)
	assert.Contains(t, err.Error(), `"Nobody"`)
}

func TestApplyValidationError(t *testing.T) {
	s := newStore(t)

	f := seed.File{Stages: []model.Stage{{Name: "SS1", LengthKM: -1}}}
	_, err := seed.Apply(context.Background(), s, f, nil)
	assert.ErrorIs(t, err, model.ErrValidation)
}
