package web

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/storage"
)

type option struct {
	Value string
	Label string
}

type field struct {
	Name        string
	Label       string
	Type        string
	Value       string
	Placeholder string
	Step        string
	Options     []option
}

type formPage struct {
	Title  string
	Action string
	Error  string
	Fields []field
}

// formSpec describes one add_* form: how to draw it and how to turn a
// submission into a stored record.
type formSpec struct {
	kind   string
	path   string
	title  string
	fields func(ctx context.Context, s storage.Store, v url.Values) ([]field, error)
	create func(ctx context.Context, s storage.Store, v url.Values) (int64, error)
}

func (f formSpec) page(ctx context.Context, s storage.Store, v url.Values) (formPage, error) {
	fields, err := f.fields(ctx, s, v)
	if err != nil {
		return formPage{}, err
	}
	return formPage{Title: f.title, Action: f.path, Fields: fields}, nil
}

func textField(name, label string, v url.Values) field {
	return field{Name: name, Label: label, Type: "text", Value: v.Get(name)}
}

func staticFields(fields ...func(v url.Values) field) func(context.Context, storage.Store, url.Values) ([]field, error) {
	return func(_ context.Context, _ storage.Store, v url.Values) ([]field, error) {
		out := make([]field, len(fields))
		for i, f := range fields {
			out[i] = f(v)
		}
		return out, nil
	}
}

func formText(name, label string) func(url.Values) field {
	return func(v url.Values) field { return textField(name, label, v) }
}

var driverForm = formSpec{
	kind:   storage.KindDriver,
	path:   "/add_driver",
	title:  "Add driver",
	fields: staticFields(formText("name", "Name")),
	create: func(ctx context.Context, s storage.Store, v url.Values) (int64, error) {
		d := model.Driver{Name: v.Get("name")}
		err := s.CreateDriver(ctx, &d)
		return d.ID, err
	},
}

var carForm = formSpec{
	kind:   storage.KindCar,
	path:   "/add_car",
	title:  "Add car",
	fields: staticFields(formText("name", "Name"), formText("class", "Class")),
	create: func(ctx context.Context, s storage.Store, v url.Values) (int64, error) {
		c := model.Car{Name: v.Get("name"), Class: v.Get("class")}
		err := s.CreateCar(ctx, &c)
		return c.ID, err
	},
}

var stageForm = formSpec{
	kind:  storage.KindStage,
	path:  "/add_stage",
	title: "Add stage",
	fields: staticFields(
		formText("name", "Name"),
		func(v url.Values) field {
			return field{Name: "length", Label: "Length (km)", Type: "number", Step: "0.01", Value: v.Get("length")}
		},
	),
	create: func(ctx context.Context, s storage.Store, v url.Values) (int64, error) {
		length, err := parseFloatField(v, "length")
		if err != nil {
			return 0, err
		}
		st := model.Stage{Name: v.Get("name"), LengthKM: length}
		err = s.CreateStage(ctx, &st)
		return st.ID, err
	},
}

var rallyForm = formSpec{
	kind:  storage.KindRally,
	path:  "/add_rally",
	title: "Add rally",
	fields: staticFields(
		formText("name", "Name"),
		func(v url.Values) field {
			return field{Name: "date", Label: "Date (optional)", Type: "date", Value: v.Get("date")}
		},
	),
	create: func(ctx context.Context, s storage.Store, v url.Values) (int64, error) {
		r := model.Rally{Name: v.Get("name")}
		if raw := strings.TrimSpace(v.Get("date")); raw != "" {
			d, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				return 0, &model.ValidationError{Field: "date", Reason: "must look like YYYY-MM-DD"}
			}
			r.Date = d
		}
		err := s.CreateRally(ctx, &r)
		return r.ID, err
	},
}

var timeForm = formSpec{
	kind:   storage.KindEntry,
	path:   "/add_time",
	title:  "Add time",
	fields: timeFields,
	create: func(ctx context.Context, s storage.Store, v url.Values) (int64, error) {
		var e model.TimingEntry
		var err error
		for _, ref := range []struct {
			name string
			dst  *int64
		}{
			{"rally", &e.RallyID},
			{"driver", &e.DriverID},
			{"stage", &e.StageID},
			{"car", &e.CarID},
		} {
			if *ref.dst, err = parseIDField(v, ref.name); err != nil {
				return 0, err
			}
		}
		e.StageNumber = v.Get("stage_number")
		e.Time = strings.TrimSpace(v.Get("time"))
		err = s.CreateTimingEntry(ctx, &e)
		return e.ID, err
	},
}

func timeFields(ctx context.Context, s storage.Store, v url.Values) ([]field, error) {
	rallies, err := s.ListRallies(ctx)
	if err != nil {
		return nil, err
	}
	drivers, err := s.ListDrivers(ctx)
	if err != nil {
		return nil, err
	}
	stages, err := s.ListStages(ctx)
	if err != nil {
		return nil, err
	}
	cars, err := s.ListCars(ctx)
	if err != nil {
		return nil, err
	}

	rallyOpts := make([]option, len(rallies))
	for i, r := range rallies {
		rallyOpts[i] = option{Value: id(r.ID), Label: r.Name}
	}
	driverOpts := make([]option, len(drivers))
	for i, d := range drivers {
		driverOpts[i] = option{Value: id(d.ID), Label: d.Name}
	}
	stageOpts := make([]option, len(stages))
	for i, st := range stages {
		stageOpts[i] = option{Value: id(st.ID), Label: fmt.Sprintf("%s (%.2f km)", st.Name, st.LengthKM)}
	}
	carOpts := make([]option, len(cars))
	for i, c := range cars {
		carOpts[i] = option{Value: id(c.ID), Label: fmt.Sprintf("%s (%s)", c.Name, c.Class)}
	}

	return []field{
		{Name: "rally", Label: "Rally", Value: v.Get("rally"), Options: rallyOpts},
		{Name: "driver", Label: "Driver", Value: v.Get("driver"), Options: driverOpts},
		{Name: "stage", Label: "Stage", Value: v.Get("stage"), Options: stageOpts},
		{Name: "car", Label: "Car", Value: v.Get("car"), Options: carOpts},
		{Name: "stage_number", Label: "Stage number", Type: "text", Value: v.Get("stage_number"), Placeholder: "SS1"},
		{Name: "time", Label: "Time", Type: "text", Value: v.Get("time"), Placeholder: "0:01:30.00"},
	}, nil
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

func parseIDField(v url.Values, name string) (int64, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return 0, &model.ValidationError{Field: name, Reason: "must be selected"}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, &model.ValidationError{Field: name, Reason: "is not a valid id"}
	}
	return n, nil
}

func parseFloatField(v url.Values, name string) (float64, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return 0, &model.ValidationError{Field: name, Reason: "is required"}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &model.ValidationError{Field: name, Reason: "must be a number"}
	}
	return f, nil
}
