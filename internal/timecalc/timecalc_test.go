package timecalc_test

import (
	"errors"
	"testing"

	"github.com/Tiliavir/rally-results/internal/timecalc"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"0:01:30.50", 90.5},
		{"1:00:00.00", 3600},
		{"0:59:00.00", 3540},
		{"0:00:00", 0},
		{"2:03:04.25", 7384.25},
		{" 0:01:25.50 ", 85.5},
		// Out-of-range minutes and seconds are accepted as-is.
		{"0:75:00.00", 4500},
		{"0:00:75.5", 75.5},
		{"00:01:30", 90},
	}
	for _, tt := range tests {
		got, err := timecalc.ParseDuration(tt.input)
		if err != nil {
			t.Errorf("ParseDuration(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseDurationInvalid(t *testing.T) {
	inputs := []string{
		"",
		"1:30.00",
		"90.5",
		"0:01:30:00",
		"a:01:30.00",
		"0:b:30.00",
		"0:01:c",
		"0.5:01:30",
		"-1:00:00",
		"0:-1:00",
		"0:01:-3",
		"0:01:NaN",
		"0:01:Inf",
		"0:01:0x1p3",
		"0:01:0X1P3",
		"0:01:1_0.5",
		"0:0x1:00",
		"1_0:00:00",
	}
	for _, in := range inputs {
		_, err := timecalc.ParseDuration(in)
		if err == nil {
			t.Errorf("ParseDuration(%q) = nil error, want format error", in)
			continue
		}
		if !errors.Is(err, timecalc.ErrFormat) {
			t.Errorf("ParseDuration(%q) error %v does not wrap ErrFormat", in, err)
		}
		var fe *timecalc.FormatError
		if !errors.As(err, &fe) || fe.Input != in {
			t.Errorf("ParseDuration(%q) error %v is not a *FormatError for the input", in, err)
		}
	}
}

func TestLessIsNumeric(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		// Lexically "1:00:00.00" sorts before "0:59:00.00"... it must not here.
		{"0:59:00.00", "1:00:00.00", true},
		{"1:00:00.00", "0:59:00.00", false},
		{"0:09:59.99", "0:10:00.00", true},
		{"0:1:30.00", "0:01:25.50", false},
		{"0:01:30.00", "0:01:30.00", false},
	}
	for _, tt := range tests {
		got, err := timecalc.Less(tt.a, tt.b)
		if err != nil {
			t.Fatalf("Less(%q, %q): %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("Less(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}

	if _, err := timecalc.Less("bad", "0:00:01"); err == nil {
		t.Error("Less with malformed input: expected error")
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00.00"},
		{90.5, "0:01:30.50"},
		{3600, "1:00:00.00"},
		{7384.25, "2:03:04.25"},
		{59.999, "0:01:00.00"},
	}
	for _, tt := range tests {
		got := timecalc.FormatSeconds(tt.seconds)
		if got != tt.want {
			t.Errorf("FormatSeconds(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatSecondsRoundTrip(t *testing.T) {
	for _, in := range []string{"0:01:30.50", "1:00:00.00", "12:34:56.78"} {
		secs, err := timecalc.ParseDuration(in)
		if err != nil {
			t.Fatal(err)
		}
		if got := timecalc.FormatSeconds(secs); got != in {
			t.Errorf("FormatSeconds(ParseDuration(%q)) = %q", in, got)
		}
	}
}

func TestFormatGap(t *testing.T) {
	tests := []struct {
		gap  float64
		want string
	}{
		{0, ""},
		{4.5, "+0:04.50"},
		{61.25, "+1:01.25"},
		{-1, ""},
	}
	for _, tt := range tests {
		got := timecalc.FormatGap(tt.gap)
		if got != tt.want {
			t.Errorf("FormatGap(%v) = %q, want %q", tt.gap, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m 0s"},
		{90, "1m 30s"},
		{3600, "1h 0m"},
		{3661, "1h 1m"},
		{5400, "1h 30m"},
	}
	for _, tt := range tests {
		got := timecalc.FormatDuration(tt.seconds)
		if got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
