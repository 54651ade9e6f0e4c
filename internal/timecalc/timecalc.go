package timecalc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrFormat is returned (wrapped in a *FormatError) when an elapsed-time
// value cannot be decomposed into hours, minutes and seconds.
var ErrFormat = errors.New("invalid elapsed time")

// FormatError describes an elapsed-time value that failed to decode.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrFormat, e.Input, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// ParseDuration decodes an elapsed time in H:MM:SS.ff form into seconds.
// Minutes and seconds are not range checked, so "0:75:00" decodes to 4500.
func ParseDuration(text string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 3 {
		return 0, &FormatError{Input: text, Reason: fmt.Sprintf("want 3 colon-separated parts, got %d", len(parts))}
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, &FormatError{Input: text, Reason: "hours are not an integer"}
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, &FormatError{Input: text, Reason: "minutes are not an integer"}
	}
	if strings.ContainsAny(parts[2], "xXpP_") {
		return 0, &FormatError{Input: text, Reason: "seconds are not a decimal number"}
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, &FormatError{Input: text, Reason: "seconds are not a number"}
	}
	for _, p := range parts {
		if strings.HasPrefix(p, "-") {
			return 0, &FormatError{Input: text, Reason: "negative component"}
		}
	}

	return float64(hours)*3600 + float64(minutes)*60 + seconds, nil
}

// Less reports whether elapsed time a is strictly shorter than b. Both values
// must decode; comparison is numeric, never lexical.
func Less(a, b string) (bool, error) {
	x, err := ParseDuration(a)
	if err != nil {
		return false, err
	}
	y, err := ParseDuration(b)
	if err != nil {
		return false, err
	}
	return x < y, nil
}

// FormatSeconds renders seconds as H:MM:SS.ss.
func FormatSeconds(seconds float64) string {
	centis := int64(math.Round(seconds * 100))
	h := centis / 360000
	m := (centis % 360000) / 6000
	s := centis % 6000
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s/100, s%100)
}

// FormatGap renders the difference to a leader as +M:SS.ss, or an empty
// string for the leader itself.
func FormatGap(gap float64) string {
	centis := int64(math.Round(gap * 100))
	if centis <= 0 {
		return ""
	}
	m := centis / 6000
	s := centis % 6000
	return fmt.Sprintf("+%d:%02d.%02d", m, s/100, s%100)
}

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
