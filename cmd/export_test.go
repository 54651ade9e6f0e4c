package cmd

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/results"
)

func sampleResults() results.RallyResults {
	celica := model.Car{ID: 1, Name: "Celica", Class: "Group A"}
	return results.RallyResults{
		Rally: model.Rally{ID: 1, Name: "Rally Finland", Date: time.Date(1993, 8, 27, 0, 0, 0, 0, time.UTC)},
		Stages: []results.StageResults{{
			StageNumber: "SS1",
			StageName:   "Ouninpohja, long",
			Entries: []results.RankedEntry{
				{Position: 1, Driver: model.Driver{ID: 1, Name: "Kankkunen"}, Car: celica, Seconds: 1234.5},
				{Position: 2, Driver: model.Driver{ID: 2, Name: "Mäkinen"}, Car: celica, Seconds: 1240.25, Gap: 5.75},
			},
		}},
	}
}

func TestPrintCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := printCSV(&buf, sampleResults()); err != nil {
		t.Fatalf("printCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	want := []string{
		"rally,stage_number,stage,position,driver,car,class,time,seconds,gap",
		`Rally Finland,SS1,"Ouninpohja, long",1,Kankkunen,Celica,Group A,0:20:34.50,1234.50,`,
		`Rally Finland,SS1,"Ouninpohja, long",2,Mäkinen,Celica,Group A,0:20:40.25,1240.25,+0:05.75`,
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestPrintCSVEmptyRally(t *testing.T) {
	var buf bytes.Buffer
	if err := printCSV(&buf, results.RallyResults{Rally: model.Rally{Name: "Empty"}}); err != nil {
		t.Fatalf("printCSV: %v", err)
	}

	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("expected header only, got %q", buf.String())
	}
}

func TestPrintCSVQuotesFields(t *testing.T) {
	res := sampleResults()
	res.Rally.Name = `Rally "Neste" Finland`
	res.Stages[0].StageName = "Ouninpohja\rlong"
	res.Stages[0].Entries[0].Driver.Name = "Kankkunen\nJuha"

	var buf bytes.Buffer
	if err := printCSV(&buf, res); err != nil {
		t.Fatalf("printCSV: %v", err)
	}
	if !strings.Contains(buf.String(), `"Rally ""Neste"" Finland"`) {
		t.Errorf("embedded quotes not doubled:\n%s", buf.String())
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	tests := []struct {
		row, col int
		want     string
	}{
		{1, 0, `Rally "Neste" Finland`},
		{1, 2, "Ouninpohja\rlong"},
		{1, 4, "Kankkunen\nJuha"},
		{2, 4, "Mäkinen"},
	}
	for _, tt := range tests {
		if got := records[tt.row][tt.col]; got != tt.want {
			t.Errorf("record %d field %d = %q, want %q", tt.row, tt.col, got, tt.want)
		}
	}
}
