// Package kvstore implements storage.Store on an embedded badger database.
// Records are JSON documents keyed by kind and big-endian id, so prefix
// iteration yields insertion order.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/storage"
)

const seqBandwidth = 64

// Options configures the badger store.
type Options struct {
	// Path to the database directory. Empty means in-memory.
	Path string
	// Logger for badger. If nil, badger logging is disabled.
	Logger badger.Logger
}

// Store is a badger-backed storage.Store.
type Store struct {
	db *badger.DB

	mu   sync.Mutex
	seqs map[string]*badger.Sequence
}

var _ storage.Store = (*Store)(nil)

// Open opens the badger database described by opts.
func Open(opts Options) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{db: db, seqs: make(map[string]*badger.Sequence)}, nil
}

// Close releases id leases and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, seq := range s.seqs {
		errs = append(errs, seq.Release())
	}
	s.seqs = nil
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// nextID hands out ascending ids per kind, starting at 1.
func (s *Store) nextID(kind string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.seqs[kind]
	if !ok {
		var err error
		seq, err = s.db.GetSequence([]byte(seqPrefix+kind), seqBandwidth)
		if err != nil {
			return 0, fmt.Errorf("storage error leasing %s ids: %w", kind, err)
		}
		s.seqs[kind] = seq
	}
	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("storage error leasing %s ids: %w", kind, err)
	}
	return int64(n) + 1, nil
}

func put(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}
	return txn.Set(key, data)
}

func read[M any](txn *badger.Txn, key []byte) (M, error) {
	var m M
	item, err := txn.Get(key)
	if err != nil {
		return m, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &m)
	})
	return m, err
}

// create assigns an id through setID and writes the record.
func create[M any](ctx context.Context, s *Store, kind string, rec *M, setID func(*M, int64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := s.nextID(kind)
	if err != nil {
		return err
	}
	staged := *rec
	setID(&staged, id)
	err = s.db.Update(func(txn *badger.Txn) error {
		return put(txn, recordKey(kind, id), staged)
	})
	if err != nil {
		return fmt.Errorf("storage error writing %s: %w", kind, err)
	}
	*rec = staged
	return nil
}

func list[M any](ctx context.Context, s *Store, kind string) ([]M, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []M{}
	prefix := kindPrefix(kind)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m M
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage error listing %s: %w", kind, err)
	}
	return out, nil
}

func get[M any](ctx context.Context, s *Store, kind string, id int64) (M, error) {
	var m M
	if err := ctx.Err(); err != nil {
		return m, err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		m, err = read[M](txn, recordKey(kind, id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return m, storage.NotFound(kind, id)
	}
	if err != nil {
		return m, fmt.Errorf("storage error reading %s %d: %w", kind, id, err)
	}
	return m, nil
}

func lookup[M any](ctx context.Context, s *Store, kind string, ids []int64) (map[int64]M, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[int64]M)
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range storage.UniqueIDs(ids) {
			m, err := read[M](txn, recordKey(kind, id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out[id] = m
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage error looking up %s: %w", kind, err)
	}
	return out, nil
}

// CreateDriver stores a driver and sets its ID.
func (s *Store) CreateDriver(ctx context.Context, d *model.Driver) error {
	if err := d.Validate(); err != nil {
		return err
	}
	return create(ctx, s, storage.KindDriver, d, func(d *model.Driver, id int64) { d.ID = id })
}

// CreateCar stores a car and sets its ID.
func (s *Store) CreateCar(ctx context.Context, c *model.Car) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return create(ctx, s, storage.KindCar, c, func(c *model.Car, id int64) { c.ID = id })
}

// CreateStage stores a stage and sets its ID.
func (s *Store) CreateStage(ctx context.Context, st *model.Stage) error {
	if err := st.Validate(); err != nil {
		return err
	}
	return create(ctx, s, storage.KindStage, st, func(st *model.Stage, id int64) { st.ID = id })
}

// CreateRally stores a rally, defaulting its date to now, and sets its ID.
func (s *Store) CreateRally(ctx context.Context, r *model.Rally) error {
	if err := storage.PrepareRally(r); err != nil {
		return err
	}
	return create(ctx, s, storage.KindRally, r, func(r *model.Rally, id int64) { r.ID = id })
}

// CreateTimingEntry checks the referenced records and writes the entry plus
// its rally index key in one transaction.
func (s *Store) CreateTimingEntry(ctx context.Context, e *model.TimingEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := s.nextID(storage.KindEntry)
	if err != nil {
		return err
	}
	staged := *e
	staged.ID = id

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, ref := range storage.EntryReferences(staged) {
			_, err := txn.Get(recordKey(ref.Kind, ref.ID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return &ref
			}
			if err != nil {
				return err
			}
		}
		if err := put(txn, recordKey(storage.KindEntry, id), staged); err != nil {
			return err
		}
		return txn.Set(rallyIndexKey(staged.RallyID, id), []byte{})
	})
	var refErr *storage.ReferenceError
	if errors.As(err, &refErr) {
		return err
	}
	if err != nil {
		return fmt.Errorf("storage error writing timing entry: %w", err)
	}
	*e = staged
	return nil
}

func (s *Store) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	return list[model.Driver](ctx, s, storage.KindDriver)
}

func (s *Store) ListCars(ctx context.Context) ([]model.Car, error) {
	return list[model.Car](ctx, s, storage.KindCar)
}

func (s *Store) ListStages(ctx context.Context) ([]model.Stage, error) {
	return list[model.Stage](ctx, s, storage.KindStage)
}

func (s *Store) ListRallies(ctx context.Context) ([]model.Rally, error) {
	return list[model.Rally](ctx, s, storage.KindRally)
}

func (s *Store) GetDriver(ctx context.Context, id int64) (model.Driver, error) {
	return get[model.Driver](ctx, s, storage.KindDriver, id)
}

func (s *Store) GetCar(ctx context.Context, id int64) (model.Car, error) {
	return get[model.Car](ctx, s, storage.KindCar, id)
}

func (s *Store) GetStage(ctx context.Context, id int64) (model.Stage, error) {
	return get[model.Stage](ctx, s, storage.KindStage, id)
}

func (s *Store) GetRally(ctx context.Context, id int64) (model.Rally, error) {
	return get[model.Rally](ctx, s, storage.KindRally, id)
}

func (s *Store) LookupDrivers(ctx context.Context, ids []int64) (map[int64]model.Driver, error) {
	return lookup[model.Driver](ctx, s, storage.KindDriver, ids)
}

func (s *Store) LookupCars(ctx context.Context, ids []int64) (map[int64]model.Car, error) {
	return lookup[model.Car](ctx, s, storage.KindCar, ids)
}

func (s *Store) LookupStages(ctx context.Context, ids []int64) (map[int64]model.Stage, error) {
	return lookup[model.Stage](ctx, s, storage.KindStage, ids)
}

// TimingEntriesForRally walks the rally index and loads each entry.
func (s *Store) TimingEntriesForRally(ctx context.Context, rallyID int64) ([]model.TimingEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []model.TimingEntry{}
	prefix := rallyIndexPrefix(rallyID)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := entryIDFromIndexKey(it.Item().Key())
			e, err := read[model.TimingEntry](txn, recordKey(storage.KindEntry, id))
			if err != nil {
				return fmt.Errorf("entry %d: %w", id, err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage error reading timing entries of rally %d: %w", rallyID, err)
	}
	return out, nil
}
