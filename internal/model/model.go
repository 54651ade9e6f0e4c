package model

import "time"

// Driver is a competitor.
type Driver struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Car is a vehicle entered in a rally. Class is a free-form label such as
// "WRC" or "R5".
type Car struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Class string `json:"class" yaml:"class"`
}

// Stage is a named route segment, reusable across rallies.
type Stage struct {
	ID       int64   `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	LengthKM float64 `json:"length_km" yaml:"length_km"`
}

// Rally is a competitive event. Date defaults to the moment of insertion.
type Rally struct {
	ID   int64     `json:"id" yaml:"id"`
	Name string    `json:"name" yaml:"name"`
	Date time.Time `json:"date" yaml:"date"`
}

// TimingEntry is one driver's recorded time for one stage run within a
// rally. StageNumber is a free label ("SS1"), unrelated to StageID, and Time
// is kept in its textual H:MM:SS.ff form.
type TimingEntry struct {
	ID          int64  `json:"id" yaml:"id"`
	RallyID     int64  `json:"rally_id" yaml:"rally_id"`
	DriverID    int64  `json:"driver_id" yaml:"driver_id"`
	StageID     int64  `json:"stage_id" yaml:"stage_id"`
	CarID       int64  `json:"car_id" yaml:"car_id"`
	StageNumber string `json:"stage_number" yaml:"stage_number"`
	Time        string `json:"time" yaml:"time"`
}
