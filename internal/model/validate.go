package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Tiliavir/rally-results/internal/timecalc"
)

// Column widths of the persisted schema.
const (
	MaxNameLen        = 50
	MaxClassLen       = 20
	MaxStageNumberLen = 10
	MaxTimeLen        = 12
)

// ErrValidation is wrapped by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a missing or malformed field of a record that is
// about to be created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func requireText(field, value string, maxLen int) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	if utf8.RuneCountInString(value) > maxLen {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("exceeds %d characters", maxLen)}
	}
	return nil
}

func requireID(field string, id int64) error {
	if id <= 0 {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

// Validate checks a driver before it is stored.
func (d Driver) Validate() error {
	return requireText("name", d.Name, MaxNameLen)
}

// Validate checks a car before it is stored.
func (c Car) Validate() error {
	if err := requireText("name", c.Name, MaxNameLen); err != nil {
		return err
	}
	return requireText("class", c.Class, MaxClassLen)
}

// Validate checks a stage before it is stored. Length must be positive.
func (s Stage) Validate() error {
	if err := requireText("name", s.Name, MaxNameLen); err != nil {
		return err
	}
	if math.IsNaN(s.LengthKM) || math.IsInf(s.LengthKM, 0) || s.LengthKM <= 0 {
		return &ValidationError{Field: "length", Reason: "must be a positive number of kilometres"}
	}
	return nil
}

// Validate checks a rally before it is stored.
func (r Rally) Validate() error {
	return requireText("name", r.Name, MaxNameLen)
}

// Validate checks a timing entry before it is stored. Referenced ids must be
// set; whether they exist is the store's concern.
func (e TimingEntry) Validate() error {
	checks := []error{
		requireID("rally", e.RallyID),
		requireID("driver", e.DriverID),
		requireID("stage", e.StageID),
		requireID("car", e.CarID),
		requireText("stage_number", e.StageNumber, MaxStageNumberLen),
		requireText("time", e.Time, MaxTimeLen),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if _, err := timecalc.ParseDuration(e.Time); err != nil {
		return &ValidationError{Field: "time", Reason: "must look like H:MM:SS.ff"}
	}
	return nil
}
