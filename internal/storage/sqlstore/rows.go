package sqlstore

import (
	"time"

	"github.com/Tiliavir/rally-results/internal/model"
)

type driverRow struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:50;not null"`
}

func (driverRow) TableName() string { return "drivers" }

func (r driverRow) toModel() model.Driver { return model.Driver{ID: r.ID, Name: r.Name} }

type carRow struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Name     string `gorm:"size:50;not null"`
	CarClass string `gorm:"column:car_class;size:20;not null"`
}

func (carRow) TableName() string { return "cars" }

func (r carRow) toModel() model.Car { return model.Car{ID: r.ID, Name: r.Name, Class: r.CarClass} }

type stageRow struct {
	ID     int64   `gorm:"primaryKey;autoIncrement"`
	Name   string  `gorm:"size:50;not null"`
	Length float64 `gorm:"not null"`
}

func (stageRow) TableName() string { return "stages" }

func (r stageRow) toModel() model.Stage { return model.Stage{ID: r.ID, Name: r.Name, LengthKM: r.Length} }

type rallyRow struct {
	ID   int64     `gorm:"primaryKey;autoIncrement"`
	Name string    `gorm:"size:50;not null"`
	Date time.Time `gorm:"not null"`
}

func (rallyRow) TableName() string { return "rallies" }

func (r rallyRow) toModel() model.Rally { return model.Rally{ID: r.ID, Name: r.Name, Date: r.Date.UTC()} }

// timingEntryRow holds four foreign keys; deleting a referenced row is
// restricted while entries point at it.
type timingEntryRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	RallyID     int64  `gorm:"not null;index"`
	DriverID    int64  `gorm:"not null"`
	StageID     int64  `gorm:"not null"`
	CarID       int64  `gorm:"not null"`
	StageNumber string `gorm:"size:10;not null"`
	Time        string `gorm:"size:12;not null"`

	Rally  rallyRow  `gorm:"foreignKey:RallyID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Driver driverRow `gorm:"foreignKey:DriverID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Stage  stageRow  `gorm:"foreignKey:StageID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Car    carRow    `gorm:"foreignKey:CarID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (timingEntryRow) TableName() string { return "timing_entries" }

func (r timingEntryRow) toModel() model.TimingEntry {
	return model.TimingEntry{
		ID:          r.ID,
		RallyID:     r.RallyID,
		DriverID:    r.DriverID,
		StageID:     r.StageID,
		CarID:       r.CarID,
		StageNumber: r.StageNumber,
		Time:        r.Time,
	}
}
