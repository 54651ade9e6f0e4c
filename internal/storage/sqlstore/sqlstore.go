// Package sqlstore implements storage.Store on a relational sqlite schema
// through gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/storage"
)

// Store is a gorm-backed storage.Store.
type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// dsn builds the sqlite connection string. An empty path opens an in-memory
// database.
func dsn(path string) string {
	if path == "" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open opens (creating if needed) the sqlite database at path and creates
// the five tables on first use.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage error opening %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage error opening %s: %w", path, err)
	}
	// sqlite serialises writers anyway; one connection also keeps an
	// in-memory database alive and shared.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("storage error enabling foreign keys: %w", err)
	}
	if err := db.AutoMigrate(&driverRow{}, &carRow{}, &stageRow{}, &rallyRow{}, &timingEntryRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("storage error creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) insert(ctx context.Context, row any) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(row).Error
	})
	if err != nil {
		return fmt.Errorf("storage error inserting: %w", err)
	}
	return nil
}

// CreateDriver stores a driver and sets its ID.
func (s *Store) CreateDriver(ctx context.Context, d *model.Driver) error {
	if err := d.Validate(); err != nil {
		return err
	}
	row := driverRow{Name: d.Name}
	if err := s.insert(ctx, &row); err != nil {
		return err
	}
	d.ID = row.ID
	return nil
}

// CreateCar stores a car and sets its ID.
func (s *Store) CreateCar(ctx context.Context, c *model.Car) error {
	if err := c.Validate(); err != nil {
		return err
	}
	row := carRow{Name: c.Name, CarClass: c.Class}
	if err := s.insert(ctx, &row); err != nil {
		return err
	}
	c.ID = row.ID
	return nil
}

// CreateStage stores a stage and sets its ID.
func (s *Store) CreateStage(ctx context.Context, st *model.Stage) error {
	if err := st.Validate(); err != nil {
		return err
	}
	row := stageRow{Name: st.Name, Length: st.LengthKM}
	if err := s.insert(ctx, &row); err != nil {
		return err
	}
	st.ID = row.ID
	return nil
}

// CreateRally stores a rally, defaulting its date to now, and sets its ID.
func (s *Store) CreateRally(ctx context.Context, r *model.Rally) error {
	if err := storage.PrepareRally(r); err != nil {
		return err
	}
	row := rallyRow{Name: r.Name, Date: r.Date}
	if err := s.insert(ctx, &row); err != nil {
		return err
	}
	r.ID = row.ID
	return nil
}

// CreateTimingEntry checks that every referenced record exists and stores
// the entry in the same transaction.
func (s *Store) CreateTimingEntry(ctx context.Context, e *model.TimingEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	row := timingEntryRow{
		RallyID:     e.RallyID,
		DriverID:    e.DriverID,
		StageID:     e.StageID,
		CarID:       e.CarID,
		StageNumber: e.StageNumber,
		Time:        e.Time,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ref := range storage.EntryReferences(*e) {
			var n int64
			if err := tx.Table(tableFor(ref.Kind)).Where("id = ?", ref.ID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return &ref
			}
		}
		return tx.Omit(clause.Associations).Create(&row).Error
	})
	var refErr *storage.ReferenceError
	if errors.As(err, &refErr) {
		return err
	}
	if err != nil {
		return fmt.Errorf("storage error inserting timing entry: %w", err)
	}
	e.ID = row.ID
	return nil
}

func tableFor(kind string) string {
	switch kind {
	case storage.KindDriver:
		return driverRow{}.TableName()
	case storage.KindCar:
		return carRow{}.TableName()
	case storage.KindStage:
		return stageRow{}.TableName()
	case storage.KindRally:
		return rallyRow{}.TableName()
	default:
		return timingEntryRow{}.TableName()
	}
}

// list loads every row of a table ordered by id and converts it.
func list[R any, M any](ctx context.Context, db *gorm.DB, conv func(R) M) ([]M, error) {
	var rows []R
	if err := db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage error listing: %w", err)
	}
	out := make([]M, 0, len(rows))
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return out, nil
}

func get[R any, M any](ctx context.Context, db *gorm.DB, kind string, id int64, conv func(R) M) (M, error) {
	var row R
	err := db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var zero M
		return zero, storage.NotFound(kind, id)
	}
	if err != nil {
		var zero M
		return zero, fmt.Errorf("storage error reading %s %d: %w", kind, id, err)
	}
	return conv(row), nil
}

func lookup[R any, M any](ctx context.Context, db *gorm.DB, ids []int64, conv func(R) M, key func(M) int64) (map[int64]M, error) {
	out := make(map[int64]M)
	ids = storage.UniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	var rows []R
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage error looking up: %w", err)
	}
	for _, r := range rows {
		m := conv(r)
		out[key(m)] = m
	}
	return out, nil
}

func (s *Store) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	return list(ctx, s.db, driverRow.toModel)
}

func (s *Store) ListCars(ctx context.Context) ([]model.Car, error) {
	return list(ctx, s.db, carRow.toModel)
}

func (s *Store) ListStages(ctx context.Context) ([]model.Stage, error) {
	return list(ctx, s.db, stageRow.toModel)
}

func (s *Store) ListRallies(ctx context.Context) ([]model.Rally, error) {
	return list(ctx, s.db, rallyRow.toModel)
}

func (s *Store) GetDriver(ctx context.Context, id int64) (model.Driver, error) {
	return get(ctx, s.db, storage.KindDriver, id, driverRow.toModel)
}

func (s *Store) GetCar(ctx context.Context, id int64) (model.Car, error) {
	return get(ctx, s.db, storage.KindCar, id, carRow.toModel)
}

func (s *Store) GetStage(ctx context.Context, id int64) (model.Stage, error) {
	return get(ctx, s.db, storage.KindStage, id, stageRow.toModel)
}

func (s *Store) GetRally(ctx context.Context, id int64) (model.Rally, error) {
	return get(ctx, s.db, storage.KindRally, id, rallyRow.toModel)
}

func (s *Store) LookupDrivers(ctx context.Context, ids []int64) (map[int64]model.Driver, error) {
	return lookup(ctx, s.db, ids, driverRow.toModel, func(d model.Driver) int64 { return d.ID })
}

func (s *Store) LookupCars(ctx context.Context, ids []int64) (map[int64]model.Car, error) {
	return lookup(ctx, s.db, ids, carRow.toModel, func(c model.Car) int64 { return c.ID })
}

func (s *Store) LookupStages(ctx context.Context, ids []int64) (map[int64]model.Stage, error) {
	return lookup(ctx, s.db, ids, stageRow.toModel, func(st model.Stage) int64 { return st.ID })
}

// TimingEntriesForRally returns the rally's entries ordered by insertion.
func (s *Store) TimingEntriesForRally(ctx context.Context, rallyID int64) ([]model.TimingEntry, error) {
	var rows []timingEntryRow
	err := s.db.WithContext(ctx).Where("rally_id = ?", rallyID).Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("storage error reading timing entries of rally %d: %w", rallyID, err)
	}
	out := make([]model.TimingEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
