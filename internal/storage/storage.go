// Package storage defines the entity store contract shared by the sqlite,
// badger and file backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tiliavir/rally-results/internal/model"
)

// ErrNotFound is returned when a requested or referenced record does not exist.
var ErrNotFound = errors.New("not found")

// Entity kinds, used in errors and as storage namespaces.
const (
	KindDriver = "driver"
	KindCar    = "car"
	KindStage  = "stage"
	KindRally  = "rally"
	KindEntry  = "timing_entry"
)

// NotFound builds an error wrapping ErrNotFound for a missing kind/id pair.
func NotFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

// ReferenceError is returned when a timing entry references a record that
// does not exist. Nothing is written in that case.
type ReferenceError struct {
	Kind string
	ID   int64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("timing entry references unknown %s %d", e.Kind, e.ID)
}

func (e *ReferenceError) Unwrap() error { return ErrNotFound }

// Store persists drivers, cars, stages, rallies and timing entries. Create
// methods validate the record, assign its ID and commit in one transaction.
// List methods return records in insertion order.
type Store interface {
	CreateDriver(ctx context.Context, d *model.Driver) error
	CreateCar(ctx context.Context, c *model.Car) error
	CreateStage(ctx context.Context, s *model.Stage) error
	CreateRally(ctx context.Context, r *model.Rally) error
	CreateTimingEntry(ctx context.Context, e *model.TimingEntry) error

	ListDrivers(ctx context.Context) ([]model.Driver, error)
	ListCars(ctx context.Context) ([]model.Car, error)
	ListStages(ctx context.Context) ([]model.Stage, error)
	ListRallies(ctx context.Context) ([]model.Rally, error)

	GetDriver(ctx context.Context, id int64) (model.Driver, error)
	GetCar(ctx context.Context, id int64) (model.Car, error)
	GetStage(ctx context.Context, id int64) (model.Stage, error)
	GetRally(ctx context.Context, id int64) (model.Rally, error)

	// Lookup methods resolve a batch of ids in one round trip. Unknown ids
	// are absent from the result map.
	LookupDrivers(ctx context.Context, ids []int64) (map[int64]model.Driver, error)
	LookupCars(ctx context.Context, ids []int64) (map[int64]model.Car, error)
	LookupStages(ctx context.Context, ids []int64) (map[int64]model.Stage, error)

	// TimingEntriesForRally returns the rally's entries in insertion order.
	TimingEntriesForRally(ctx context.Context, rallyID int64) ([]model.TimingEntry, error)

	Close() error
}

// Now is the clock used to default Rally.Date. Tests may replace it.
var Now = func() time.Time { return time.Now().UTC() }

// PrepareRally validates a rally and fills in its default date.
func PrepareRally(r *model.Rally) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Date.IsZero() {
		r.Date = Now()
	}
	r.Date = r.Date.UTC()
	return nil
}

// EntryReferences lists the records a timing entry points at, in the order
// they are checked.
func EntryReferences(e model.TimingEntry) []ReferenceError {
	return []ReferenceError{
		{Kind: KindRally, ID: e.RallyID},
		{Kind: KindDriver, ID: e.DriverID},
		{Kind: KindStage, ID: e.StageID},
		{Kind: KindCar, ID: e.CarID},
	}
}

// UniqueIDs returns ids without duplicates, keeping first-seen order.
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
