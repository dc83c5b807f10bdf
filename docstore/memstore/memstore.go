// Package memstore provides an in-memory implementation of docstore.Store used
// for tests and ephemeral environments. Transactions are optimistic: reads
// record document versions and commit fails with ErrTransactionConflict when
// any of them changed in the meantime.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"salonbook/docstore"
)

// Compile-time contract assertion.
var _ docstore.Store = (*Store)(nil)

type key struct {
	collection string
	id         string
}

type entry struct {
	fields  docstore.Fields
	version uint64
}

// Store keeps every collection in process memory. It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]entry
	clock       uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{collections: make(map[string]map[string]entry)}
}

// Get implements docstore.Reader.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.collections[collection][id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{ID: id, Fields: e.fields.Clone()}, nil
}

// Query implements docstore.Reader.
func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	docs := make([]docstore.Document, 0, len(s.collections[collection]))
	for id, e := range s.collections[collection] {
		docs = append(docs, docstore.Document{ID: id, Fields: e.fields.Clone()})
	}
	s.mu.RUnlock()

	return apply(docs, q), nil
}

// Create implements docstore.Writer.
func (s *Store) Create(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collections[collection][id]; exists {
		return docstore.ErrAlreadyExists
	}
	s.putLocked(collection, id, fields.Clone())
	return nil
}

// Set implements docstore.Writer.
func (s *Store) Set(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putLocked(collection, id, fields.Clone())
	return nil
}

// Update implements docstore.Writer.
func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.collections[collection][id]
	if !ok {
		return docstore.ErrNotFound
	}
	s.putLocked(collection, id, merge(e.fields, fields))
	return nil
}

// Delete implements docstore.Writer.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[collection], id)
	return nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// RunTransaction implements docstore.Store.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &transaction{
		store:  s,
		reads:  make(map[key]uint64),
		writes: make(map[key]*pendingWrite),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, seen := range tx.reads {
		if s.versionLocked(k) != seen {
			return fmt.Errorf("%w: %s/%s changed", docstore.ErrTransactionConflict, k.collection, k.id)
		}
	}
	for _, k := range tx.order {
		w := tx.writes[k]
		if w.deleted {
			delete(s.collections[k.collection], k.id)
			continue
		}
		s.putLocked(k.collection, k.id, w.fields)
	}
	return nil
}

func (s *Store) versionLocked(k key) uint64 {
	e, ok := s.collections[k.collection][k.id]
	if !ok {
		return 0
	}
	return e.version
}

func (s *Store) putLocked(collection, id string, fields docstore.Fields) {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]entry)
		s.collections[collection] = docs
	}
	s.clock++
	docs[id] = entry{fields: fields, version: s.clock}
}

func merge(base, patch docstore.Fields) docstore.Fields {
	out := base.Clone()
	if out == nil {
		out = docstore.Fields{}
	}
	for k, v := range patch.Clone() {
		out[k] = v
	}
	return out
}

func apply(docs []docstore.Document, q docstore.Query) []docstore.Document {
	out := docs[:0]
	for _, d := range docs {
		if matchesAll(d.Fields, q.Where) {
			out = append(out, d)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy == "" {
			return out[i].ID < out[j].ID
		}
		c, _ := compare(out[i].Fields[q.OrderBy], out[j].Fields[q.OrderBy])
		if c == 0 {
			return out[i].ID < out[j].ID
		}
		if q.Descending {
			return c > 0
		}
		return c < 0
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
