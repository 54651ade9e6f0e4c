package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/seed"
	"github.com/Tiliavir/rally-results/internal/storage"
	"github.com/Tiliavir/rally-results/internal/timecalc"
)

func TestPrintRallies(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rallies := []model.Rally{
		{ID: 1, Name: "Rally Finland", Date: now.AddDate(0, 0, -3)},
		{ID: 2, Name: "Monte Carlo", Date: now.AddDate(0, 0, 14)},
	}

	var buf bytes.Buffer
	printRallies(&buf, rallies, now)
	out := buf.String()

	for _, want := range []string{"Rally Finland", "2024-05-29", "3 days ago", "Monte Carlo", "2 weeks from now"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintEmptyLists(t *testing.T) {
	tests := []struct {
		name  string
		print func(*bytes.Buffer)
		want  string
	}{
		{"rallies", func(b *bytes.Buffer) { printRallies(b, nil, time.Now()) }, "No rallies found."},
		{"drivers", func(b *bytes.Buffer) { printDrivers(b, nil) }, "No drivers found."},
		{"cars", func(b *bytes.Buffer) { printCars(b, nil) }, "No cars found."},
		{"stages", func(b *bytes.Buffer) { printStages(b, nil) }, "No stages found."},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		tt.print(&buf)
		if got := strings.TrimSpace(buf.String()); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestPrintRecords(t *testing.T) {
	var buf bytes.Buffer
	printDrivers(&buf, []model.Driver{{ID: 7, Name: "Kankkunen"}})
	printCars(&buf, []model.Car{{ID: 3, Name: "Celica", Class: "Group A"}})
	printStages(&buf, []model.Stage{{ID: 4, Name: "Ouninpohja", LengthKM: 33.5}})
	out := buf.String()

	for _, want := range []string{"Kankkunen", "Celica", "Group A", "Ouninpohja", "33.5 km"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&model.ValidationError{Field: "name", Reason: "is required"}, 1},
		{storage.NotFound(storage.KindRally, 9), 1},
		{fmt.Errorf("create: %w", &storage.ReferenceError{Kind: storage.KindDriver, ID: 2}), 1},
		{&timecalc.FormatError{Input: "soon", Reason: "want H:MM:SS.ff"}, 1},
		{fmt.Errorf("rally %q time 1: %w", "x", seed.ErrUnknownName), 1},
		{errors.New("disk full"), 2},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		arg     string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseID(tt.arg, "rally id")
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseID(%q) = %d, %v; want %d, err=%v", tt.arg, got, err, tt.want, tt.wantErr)
		}
	}
}
