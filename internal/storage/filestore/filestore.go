// Package filestore implements storage.Store as a single human-readable JSON
// snapshot file, rewritten atomically on every create.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/storage"
)

// snapshot is the top-level structure stored in the data file.
type snapshot struct {
	NextIDs       map[string]int64    `json:"next_ids"`
	Drivers       []model.Driver      `json:"drivers"`
	Cars          []model.Car         `json:"cars"`
	Stages        []model.Stage       `json:"stages"`
	Rallies       []model.Rally       `json:"rallies"`
	TimingEntries []model.TimingEntry `json:"timing_entries"`
}

func (sn *snapshot) nextID(kind string) int64 {
	if sn.NextIDs == nil {
		sn.NextIDs = make(map[string]int64)
	}
	sn.NextIDs[kind]++
	return sn.NextIDs[kind]
}

func (sn *snapshot) has(kind string, id int64) bool {
	switch kind {
	case storage.KindDriver:
		return indexOf(sn.Drivers, id, func(d model.Driver) int64 { return d.ID }) >= 0
	case storage.KindCar:
		return indexOf(sn.Cars, id, func(c model.Car) int64 { return c.ID }) >= 0
	case storage.KindStage:
		return indexOf(sn.Stages, id, func(s model.Stage) int64 { return s.ID }) >= 0
	case storage.KindRally:
		return indexOf(sn.Rallies, id, func(r model.Rally) int64 { return r.ID }) >= 0
	}
	return false
}

func indexOf[M any](items []M, id int64, key func(M) int64) int {
	for i, m := range items {
		if key(m) == id {
			return i
		}
	}
	return -1
}

// Store is a JSON-file-backed storage.Store. The mutex serialises access
// within one process; the file is not shared between processes.
type Store struct {
	path string
	mu   sync.RWMutex
}

var _ storage.Store = (*Store)(nil)

// Open returns a store writing to path. The file is created on first write.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("storage error: file store needs a path")
	}
	s := &Store{path: path}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close is a no-op; every write is already durable.
func (s *Store) Close() error { return nil }

// load reads the snapshot. A missing file is an empty snapshot.
func (s *Store) load() (snapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return snapshot{}, nil
	}
	if err != nil {
		return snapshot{}, fmt.Errorf("storage error reading %s: %w", s.path, err)
	}

	var sn snapshot
	if err := json.Unmarshal(data, &sn); err != nil {
		// Back up corrupt file and abort.
		backupPath := s.path + ".corrupt"
		_ = os.Rename(s.path, backupPath)
		return snapshot{}, fmt.Errorf("corrupt JSON in %s (backed up to %s): %w", s.path, backupPath, err)
	}
	return sn, nil
}

// save atomically writes the snapshot.
func (s *Store) save(sn snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	data, err := json.MarshalIndent(sn, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}

	// Atomic write: write to temp file then rename.
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// update applies fn to the current snapshot and saves the result only when
// fn succeeds.
func (s *Store) update(ctx context.Context, fn func(sn *snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sn, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(&sn); err != nil {
		return err
	}
	return s.save(sn)
}

func (s *Store) view(ctx context.Context) (snapshot, error) {
	if err := ctx.Err(); err != nil {
		return snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// insert assigns the next id of kind to a copy of rec, appends it with add
// and reports the id once the snapshot is saved.
func insert[M any](ctx context.Context, s *Store, kind string, rec M, setID func(*M, int64), add func(*snapshot, M)) (int64, error) {
	var id int64
	err := s.update(ctx, func(sn *snapshot) error {
		id = sn.nextID(kind)
		setID(&rec, id)
		add(sn, rec)
		return nil
	})
	return id, err
}

// CreateDriver stores a driver and sets its ID.
func (s *Store) CreateDriver(ctx context.Context, d *model.Driver) error {
	if err := d.Validate(); err != nil {
		return err
	}
	id, err := insert(ctx, s, storage.KindDriver, *d,
		func(d *model.Driver, id int64) { d.ID = id },
		func(sn *snapshot, d model.Driver) { sn.Drivers = append(sn.Drivers, d) })
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

// CreateCar stores a car and sets its ID.
func (s *Store) CreateCar(ctx context.Context, c *model.Car) error {
	if err := c.Validate(); err != nil {
		return err
	}
	id, err := insert(ctx, s, storage.KindCar, *c,
		func(c *model.Car, id int64) { c.ID = id },
		func(sn *snapshot, c model.Car) { sn.Cars = append(sn.Cars, c) })
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// CreateStage stores a stage and sets its ID.
func (s *Store) CreateStage(ctx context.Context, st *model.Stage) error {
	if err := st.Validate(); err != nil {
		return err
	}
	id, err := insert(ctx, s, storage.KindStage, *st,
		func(st *model.Stage, id int64) { st.ID = id },
		func(sn *snapshot, st model.Stage) { sn.Stages = append(sn.Stages, st) })
	if err != nil {
		return err
	}
	st.ID = id
	return nil
}

// CreateRally stores a rally, defaulting its date to now, and sets its ID.
func (s *Store) CreateRally(ctx context.Context, r *model.Rally) error {
	if err := storage.PrepareRally(r); err != nil {
		return err
	}
	id, err := insert(ctx, s, storage.KindRally, *r,
		func(r *model.Rally, id int64) { r.ID = id },
		func(sn *snapshot, r model.Rally) { sn.Rallies = append(sn.Rallies, r) })
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// CreateTimingEntry checks the referenced records and appends the entry.
func (s *Store) CreateTimingEntry(ctx context.Context, e *model.TimingEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	var staged model.TimingEntry
	err := s.update(ctx, func(sn *snapshot) error {
		for _, ref := range storage.EntryReferences(*e) {
			if !sn.has(ref.Kind, ref.ID) {
				return &ref
			}
		}
		staged = *e
		staged.ID = sn.nextID(storage.KindEntry)
		sn.TimingEntries = append(sn.TimingEntries, staged)
		return nil
	})
	if err != nil {
		return err
	}
	*e = staged
	return nil
}

func (s *Store) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	sn, err := s.view(ctx)
	return append([]model.Driver{}, sn.Drivers...), err
}

func (s *Store) ListCars(ctx context.Context) ([]model.Car, error) {
	sn, err := s.view(ctx)
	return append([]model.Car{}, sn.Cars...), err
}

func (s *Store) ListStages(ctx context.Context) ([]model.Stage, error) {
	sn, err := s.view(ctx)
	return append([]model.Stage{}, sn.Stages...), err
}

func (s *Store) ListRallies(ctx context.Context) ([]model.Rally, error) {
	sn, err := s.view(ctx)
	return append([]model.Rally{}, sn.Rallies...), err
}

func find[M any](items []M, kind string, id int64, key func(M) int64) (M, error) {
	if i := indexOf(items, id, key); i >= 0 {
		return items[i], nil
	}
	var zero M
	return zero, storage.NotFound(kind, id)
}

func (s *Store) GetDriver(ctx context.Context, id int64) (model.Driver, error) {
	sn, err := s.view(ctx)
	if err != nil {
		return model.Driver{}, err
	}
	return find(sn.Drivers, storage.KindDriver, id, func(d model.Driver) int64 { return d.ID })
}

func (s *Store) GetCar(ctx context.Context, id int64) (model.Car, error) {
	sn, err := s.view(ctx)
	if err != nil {
		return model.Car{}, err
	}
	return find(sn.Cars, storage.KindCar, id, func(c model.Car) int64 { return c.ID })
}

func (s *Store) GetStage(ctx context.Context, id int64) (model.Stage, error) {
	sn, err := s.view(ctx)
	if err != nil {
		return model.Stage{}, err
	}
	return find(sn.Stages, storage.KindStage, id, func(st model.Stage) int64 { return st.ID })
}

func (s *Store) GetRally(ctx context.Context, id int64) (model.Rally, error) {
	sn, err := s.view(ctx)
	if err != nil {
		return model.Rally{}, err
	}
	return find(sn.Rallies, storage.KindRally, id, func(r model.Rally) int64 { return r.ID })
}

func pick[M any](items []M, ids []int64, key func(M) int64) map[int64]M {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make(map[int64]M)
	for _, m := range items {
		if _, ok := want[key(m)]; ok {
			out[key(m)] = m
		}
	}
	return out
}

func (s *Store) LookupDrivers(ctx context.Context, ids []int64) (map[int64]model.Driver, error) {
	sn, err := s.view(ctx)
	if err != nil {
		return nil, err
	}
	return pick(sn.Drivers, ids, func(d model.Driver) int64 { return d.ID }), nil
}

func (s *Store) LookupCars(ctx context.Context, ids []int64) (map[int64]model.Car, error) {
	sn, err := s.view(ctx)
	if err != nil {
		return nil, err
	}
	return pick(sn.Cars, ids, func(c model.Car) int64 { return c.ID }), nil
}

func (s *Store) LookupStages(ctx context.Context, ids []int64) (map[int64]model.Stage, error) {
	sn, err := s.view(ctx)
	if err != nil {
		return nil, err
	}
	return pick(sn.Stages, ids, func(st model.Stage) int64 { return st.ID }), nil
}

// TimingEntriesForRally returns the rally's entries in insertion order.
func (s *Store) TimingEntriesForRally(ctx context.Context, rallyID int64) ([]model.TimingEntry, error) {
	sn, err := s.view(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.TimingEntry{}
	for _, e := range sn.TimingEntries {
		if e.RallyID == rallyID {
			out = append(out, e)
		}
	}
	return out, nil
}
