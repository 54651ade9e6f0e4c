package protocol_test

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/protocol"
	"github.com/Tiliavir/rally-results/internal/results"
)

func TestSheetName(t *testing.T) {
	t.Parallel()

	used := map[string]bool{}
	tests := []struct {
		number, stage, want string
	}{
		{"SS1", "Ouninpohja", "SS1 Ouninpohja"},
		{"SS1", "Ouninpohja", "SS1 Ouninpohja (2)"},
		{"ss1", "ouninpohja", "ss1 ouninpohja (3)"},
		{"2/3", "Col de Turini?", "2_3 Col de Turini_"},
		{"", "", "Stage"},
		{"'SS4'", "", "SS4"},
	}
	for _, tt := range tests {
		got := protocol.SheetName(tt.number, tt.stage, used)
		assert.Equal(t, tt.want, got)
	}
}

func TestSheetNameTruncates(t *testing.T) {
	t.Parallel()

	used := map[string]bool{}
	long := strings.Repeat("Ä", 40)

	first := protocol.SheetName("1", long, used)
	second := protocol.SheetName("1", long, used)

	assert.Equal(t, 31, utf8.RuneCountInString(first))
	assert.Equal(t, 31, utf8.RuneCountInString(second))
	assert.True(t, strings.HasSuffix(second, " (2)"))
	assert.NotEqual(t, first, second)
}

func fixture() results.RallyResults {
	car := model.Car{Name: "Fabia", Class: "R5"}
	return results.RallyResults{
		Rally: model.Rally{ID: 1, Name: "Test Rally"},
		Stages: []results.StageResults{
			{
				StageNumber: "2",
				StageName:   "SS1",
				Entries: []results.RankedEntry{
					{Position: 1, Driver: model.Driver{Name: "B"}, Car: car, Seconds: 85.5},
					{Position: 2, Driver: model.Driver{Name: "A"}, Car: car, Seconds: 90, Gap: 4.5},
				},
			},
			{
				StageNumber: "1",
				StageName:   "SS1",
				Entries: []results.RankedEntry{
					{Position: 1, Driver: model.Driver{Name: "A"}, Car: car, Seconds: 3600},
				},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	f, err := protocol.Build(fixture())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"2 SS1", "1 SS1"}, f.GetSheetList())

	rows, err := f.GetRows("2 SS1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Pos", "Driver", "Car", "Class", "Time", "Gap"}, rows[0])
	assert.Equal(t, []string{"1", "B", "Fabia", "R5", "0:01:25.50"}, rows[1][:5])
	assert.Equal(t, []string{"2", "A", "Fabia", "R5", "0:01:30.00", "+0:04.50"}, rows[2])

	rows, err = f.GetRows("1 SS1")
	require.NoError(t, err)
	assert.Equal(t, "1:00:00.00", rows[1][4])
}

func TestBuildRoundTripsThroughWriter(t *testing.T) {
	t.Parallel()

	f, err := protocol.Build(fixture())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	reopened, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Len(t, reopened.GetSheetList(), 2)
}

func TestBuildEmpty(t *testing.T) {
	t.Parallel()

	f, err := protocol.Build(results.RallyResults{Rally: model.Rally{Name: "Quiet Rally"}})
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Results"}, f.GetSheetList())
	v, err := f.GetCellValue("Results", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Quiet Rally", v)
}
