// Package flat provides an in-memory brute-force implementation of the
// vectorstore contract with optional snapshot persistence.
//
// It uses a copy-on-write pattern for lock-free concurrent reads: queries
// always operate on an immutable collection state while writes swap in a
// new state under a mutex. Slots are append-only; overwriting an id marks
// the old slot dead in a roaring bitmap instead of compacting eagerly.
package flat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/imgsim/codec"
	"github.com/hupe1980/imgsim/distance"
	"github.com/hupe1980/imgsim/vectorstore"
)

// Compile-time checks to ensure Store satisfies required interfaces.
var _ vectorstore.Store = (*Store)(nil)
var _ vectorstore.Snapshotter = (*Store)(nil)

// Options contains configuration options for the flat store.
type Options struct {
	// Dimension is the fixed vector dimensionality for this store.
	// If 0, the dimension is locked in by the first upsert.
	Dimension int

	// Compression selects the snapshot block compression.
	Compression CompressionType

	// Codec serializes snapshot payloads. Defaults to codec.Default.
	Codec codec.Codec
}

// DefaultOptions contains the default configuration options for the flat store.
var DefaultOptions = Options{
	Dimension:   0,
	Compression: CompressionZSTD,
}

// collectionState holds the immutable state of the collection for
// lock-free reads.
type collectionState struct {
	slots []vectorstore.Record // append-only; dead entries stay in place
	live  *roaring.Bitmap      // slot indexes currently visible
	byID  map[string]uint32    // id -> live slot
}

// Store is an in-memory flat vector store.
type Store struct {
	state   atomic.Value // holds *collectionState
	writeMu sync.Mutex   // serializes writes only
	dim     atomic.Int32 // locked in by Options.Dimension or first upsert
	closed  atomic.Bool
	opts    Options
	path    string // snapshot path for Open/Close persistence, "" = memory only
}

// New creates a new empty in-memory store.
func New(optFns ...func(o *Options)) *Store {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	s := &Store{opts: opts}
	s.dim.Store(int32(opts.Dimension))
	s.state.Store(emptyState())

	return s
}

// Open creates a store backed by a snapshot file. If the file exists its
// contents are loaded; otherwise the store starts empty. Close persists the
// current state back to the same path, so the collection survives restarts
// and is reopenable by path alone.
func Open(path string, optFns ...func(o *Options)) (*Store, error) {
	s := New(optFns...)
	s.path = path

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	defer f.Close()

	if err := s.LoadFrom(context.Background(), f); err != nil {
		return nil, err
	}
	return s, nil
}

func emptyState() *collectionState {
	return &collectionState{
		slots: make([]vectorstore.Record, 0),
		live:  roaring.New(),
		byID:  make(map[string]uint32),
	}
}

// getState returns the current immutable state (lock-free read).
func (s *Store) getState() *collectionState {
	return s.state.Load().(*collectionState)
}

// cloneState creates a copy of the current state for copy-on-write.
func (s *Store) cloneState(st *collectionState) *collectionState {
	newSlots := make([]vectorstore.Record, len(st.slots))
	copy(newSlots, st.slots)

	newByID := make(map[string]uint32, len(st.byID))
	for id, slot := range st.byID {
		newByID[id] = slot
	}

	return &collectionState{
		slots: newSlots,
		live:  st.live.Clone(),
		byID:  newByID,
	}
}

// Upsert inserts or overwrites the record for rec.ID. Last write wins.
func (s *Store) Upsert(ctx context.Context, rec vectorstore.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return vectorstore.ErrClosed
	}

	vec, ok := distance.NormalizeL2Copy(rec.Vector)
	if !ok {
		return vectorstore.ErrZeroVector
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	dim := int(s.dim.Load())
	if dim == 0 {
		s.dim.Store(int32(len(vec)))
	} else if len(vec) != dim {
		return &vectorstore.ErrDimensionMismatch{Expected: dim, Actual: len(vec)}
	}

	oldState := s.getState()
	newState := s.cloneState(oldState)

	// Retire the previous slot for this id, if any.
	if old, exists := newState.byID[rec.ID]; exists {
		newState.live.Remove(old)
	}

	slot := uint32(len(newState.slots))
	stored := rec
	stored.Vector = vec
	newState.slots = append(newState.slots, stored)
	newState.live.Add(slot)
	newState.byID[rec.ID] = slot

	s.state.Store(newState)
	return nil
}

// Get returns the record for id, or vectorstore.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (vectorstore.Record, error) {
	if err := ctx.Err(); err != nil {
		return vectorstore.Record{}, err
	}
	if s.closed.Load() {
		return vectorstore.Record{}, vectorstore.ErrClosed
	}

	st := s.getState()
	slot, ok := st.byID[id]
	if !ok {
		return vectorstore.Record{}, vectorstore.ErrNotFound
	}
	return st.slots[slot], nil
}

// Query performs a brute-force cosine scan over all live slots.
// This method is lock-free using the copy-on-write pattern.
func (s *Store) Query(ctx context.Context, vec []float32, k int) ([]vectorstore.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, vectorstore.ErrClosed
	}

	st := s.getState()
	if k <= 0 || len(st.byID) == 0 {
		return nil, nil
	}

	dim := int(s.dim.Load())
	if dim > 0 && len(vec) != dim {
		return nil, &vectorstore.ErrDimensionMismatch{Expected: dim, Actual: len(vec)}
	}

	q, ok := distance.NormalizeL2Copy(vec)
	if !ok {
		return nil, vectorstore.ErrZeroVector
	}

	results := make([]vectorstore.QueryResult, 0, len(st.byID))

	it := st.live.Iterator()
	for it.HasNext() {
		rec := st.slots[it.Next()]
		results = append(results, vectorstore.QueryResult{
			ID:       rec.ID,
			Distance: distance.Cosine(q, rec.Vector),
			Metadata: rec.Metadata,
		})
	}

	// Ascending distance, ties broken by id for stable, reproducible output.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Count returns the number of distinct ids in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.closed.Load() {
		return 0, vectorstore.ErrClosed
	}
	return len(s.getState().byID), nil
}

// DeleteAll removes every record, leaving the store ready and empty.
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return vectorstore.ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.state.Store(emptyState())
	if s.opts.Dimension == 0 {
		// Dimension was inferred from data; a fresh store may re-infer.
		s.dim.Store(0)
	}
	return nil
}

// Close persists the collection to the snapshot path (when opened with
// Open) and marks the store closed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.path == "" {
		return nil
	}
	return s.saveToFile(s.path)
}

// saveToFile writes the snapshot atomically via a temp file + rename.
func (s *Store) saveToFile(path string) error {
	// Temp file in the target directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if err := s.writeSnapshot(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	return nil
}
