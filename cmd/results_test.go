package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/results"
)

func withColor(t *testing.T, enabled bool) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = !enabled //nolint:reassign // library global
	t.Cleanup(func() { color.NoColor = prev })
}

func TestPrintResults(t *testing.T) {
	withColor(t, false)

	var buf bytes.Buffer
	printResults(&buf, sampleResults())
	out := buf.String()

	for _, want := range []string{"Rally Finland (1993-08-27)", "SS1  Ouninpohja, long", "Kankkunen", "0:20:34.50", "+0:05.75"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Kankkunen") > strings.Index(out, "Mäkinen") {
		t.Errorf("leader should be listed first:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("unexpected escape codes with color disabled:\n%s", out)
	}
}

func TestPrintResultsHighlightsLeader(t *testing.T) {
	withColor(t, true)

	var buf bytes.Buffer
	printResults(&buf, sampleResults())

	for _, line := range strings.Split(buf.String(), "\n") {
		switch {
		case strings.Contains(line, "Kankkunen"):
			if !strings.Contains(line, "\x1b[") {
				t.Errorf("leader row not highlighted: %q", line)
			}
		case strings.Contains(line, "Mäkinen"):
			if strings.Contains(line, "\x1b[") {
				t.Errorf("second row highlighted: %q", line)
			}
		}
	}
}

func TestPrintResultsNoTimes(t *testing.T) {
	withColor(t, false)

	var buf bytes.Buffer
	printResults(&buf, results.RallyResults{Rally: model.Rally{Name: "Empty"}})

	if !strings.Contains(buf.String(), "No times recorded.") {
		t.Errorf("got %q", buf.String())
	}
}
