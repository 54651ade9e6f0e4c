package model_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Tiliavir/rally-results/internal/model"
)

func validEntry() model.TimingEntry {
	return model.TimingEntry{
		RallyID:     1,
		DriverID:    2,
		StageID:     3,
		CarID:       4,
		StageNumber: "SS1",
		Time:        "0:01:30.00",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		record    interface{ Validate() error }
		wantField string
	}{
		{"driver ok", model.Driver{Name: "A"}, ""},
		{"driver blank", model.Driver{Name: "  "}, "name"},
		{"driver too long", model.Driver{Name: strings.Repeat("x", 51)}, "name"},
		{"car ok", model.Car{Name: "Fabia", Class: "R5"}, ""},
		{"car missing class", model.Car{Name: "Fabia"}, "class"},
		{"stage ok", model.Stage{Name: "Ouninpohja", LengthKM: 33}, ""},
		{"stage zero length", model.Stage{Name: "SS", LengthKM: 0}, "length"},
		{"stage negative length", model.Stage{Name: "SS", LengthKM: -2}, "length"},
		{"stage NaN length", model.Stage{Name: "SS", LengthKM: math.NaN()}, "length"},
		{"rally ok", model.Rally{Name: "Test Rally"}, ""},
		{"rally blank", model.Rally{}, "name"},
		{"entry ok", validEntry(), ""},
		{"entry no rally", func() model.TimingEntry { e := validEntry(); e.RallyID = 0; return e }(), "rally"},
		{"entry no car", func() model.TimingEntry { e := validEntry(); e.CarID = 0; return e }(), "car"},
		{"entry no stage number", func() model.TimingEntry { e := validEntry(); e.StageNumber = ""; return e }(), "stage_number"},
		{"entry long stage number", func() model.TimingEntry { e := validEntry(); e.StageNumber = "SS123456789"; return e }(), "stage_number"},
		{"entry bad time", func() model.TimingEntry { e := validEntry(); e.Time = "1:30"; return e }(), "time"},
		{"entry no time", func() model.TimingEntry { e := validEntry(); e.Time = ""; return e }(), "time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, model.ErrValidation) {
				t.Fatalf("Validate() = %v, want validation error", err)
			}
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %T, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}
