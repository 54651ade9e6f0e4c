// Package protocol builds the stage-by-stage results spreadsheet.
package protocol

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Tiliavir/rally-results/internal/results"
	"github.com/Tiliavir/rally-results/internal/timecalc"
)

const (
	maxSheetName  = 31
	defaultSheet  = "Sheet1"
	emptySheet    = "Results"
	headerRow     = 1
	firstDataRow  = 2
	nameColWidth  = 28
	otherColWidth = 12
)

var header = []string{"Pos", "Driver", "Car", "Class", "Time", "Gap"}

type styles struct {
	header int
	leader int
	plain  int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"1c399e"},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
		Font: &excelize.Font{
			Size:  12,
			Color: "ffffff",
			Bold:  true,
		},
	})
	if err != nil {
		return s, err
	}
	s.leader, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"3cb03a"},
		},
		Font: &excelize.Font{
			Bold: true,
		},
	})
	if err != nil {
		return s, err
	}
	s.plain, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "left",
		},
	})
	return s, err
}

// sheet writes cells and keeps the first error.
type sheet struct {
	f    *excelize.File
	name string
	err  error
}

func (s *sheet) cell(col, row int, value any, style int) {
	if s.err != nil {
		return
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		s.err = err
		return
	}
	if s.err = s.f.SetCellValue(s.name, ref, value); s.err != nil {
		return
	}
	s.err = s.f.SetCellStyle(s.name, ref, ref, style)
}

// Build returns a workbook with one sheet per stage group, in the order the
// groups appear in res. The caller closes the file.
func Build(res results.RallyResults) (*excelize.File, error) {
	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("protocol styles: %w", err)
	}

	if len(res.Stages) == 0 {
		if err := f.SetSheetName(defaultSheet, emptySheet); err != nil {
			_ = f.Close()
			return nil, err
		}
		s := &sheet{f: f, name: emptySheet}
		s.cell(1, 1, res.Rally.Name, st.header)
		s.cell(1, 2, "No times recorded", st.plain)
		if s.err != nil {
			_ = f.Close()
			return nil, s.err
		}
		return f, nil
	}

	used := make(map[string]bool)
	for i, stage := range res.Stages {
		name := SheetName(stage.StageNumber, stage.StageName, used)
		if i == 0 {
			err = f.SetSheetName(defaultSheet, name)
		} else {
			_, err = f.NewSheet(name)
		}
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("protocol sheet %q: %w", name, err)
		}
		if err := writeStage(f, name, stage, st); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("protocol sheet %q: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeStage(f *excelize.File, name string, stage results.StageResults, st styles) error {
	s := &sheet{f: f, name: name}
	for col, title := range header {
		s.cell(col+1, headerRow, title, st.header)
	}
	for i, e := range stage.Entries {
		style := st.plain
		if e.Position == 1 {
			style = st.leader
		}
		row := firstDataRow + i
		s.cell(1, row, e.Position, style)
		s.cell(2, row, e.Driver.Name, style)
		s.cell(3, row, e.Car.Name, style)
		s.cell(4, row, e.Car.Class, style)
		s.cell(5, row, timecalc.FormatSeconds(e.Seconds), style)
		s.cell(6, row, timecalc.FormatGap(e.Gap), style)
	}
	if s.err != nil {
		return s.err
	}
	if err := f.SetColWidth(name, "B", "C", nameColWidth); err != nil {
		return err
	}
	return f.SetColWidth(name, "D", "F", otherColWidth)
}

// SheetName derives a valid, unique worksheet name for a stage group.
// Excel forbids : \ / ? * [ ], caps names at 31 characters and compares
// them case-insensitively. used records names already taken.
func SheetName(stageNumber, stageName string, used map[string]bool) string {
	base := strings.TrimSpace(stageNumber)
	if stageName != "" {
		base = strings.TrimSpace(base + " " + stageName)
	}
	base = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, base)
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Stage"
	}
	base = truncate(base, maxSheetName)

	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
