package memstore

import (
	"context"

	"salonbook/docstore"
)

type pendingWrite struct {
	fields  docstore.Fields
	deleted bool
}

// transaction buffers writes until commit and remembers the version of every
// document it observed.
type transaction struct {
	store  *Store
	reads  map[key]uint64
	writes map[key]*pendingWrite
	order  []key
}

func (t *transaction) observe(k key) (entry, bool) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	e, ok := t.store.collections[k.collection][k.id]
	if _, seen := t.reads[k]; !seen {
		if ok {
			t.reads[k] = e.version
		} else {
			t.reads[k] = 0
		}
	}
	return e, ok
}

func (t *transaction) stage(k key, w *pendingWrite) {
	if _, ok := t.writes[k]; !ok {
		t.order = append(t.order, k)
	}
	t.writes[k] = w
}

// current returns the document as this transaction sees it.
func (t *transaction) current(k key) (docstore.Fields, bool) {
	if w, ok := t.writes[k]; ok {
		if w.deleted {
			return nil, false
		}
		return w.fields, true
	}
	e, ok := t.observe(k)
	if !ok {
		return nil, false
	}
	return e.fields, true
}

func (t *transaction) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	fields, ok := t.current(key{collection, id})
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{ID: id, Fields: fields.Clone()}, nil
}

func (t *transaction) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	t.store.mu.RLock()
	ids := make([]string, 0, len(t.store.collections[collection]))
	for id := range t.store.collections[collection] {
		ids = append(ids, id)
	}
	t.store.mu.RUnlock()
	for k := range t.writes {
		if k.collection == collection {
			ids = append(ids, k.id)
		}
	}

	seen := make(map[string]bool, len(ids))
	docs := make([]docstore.Document, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if fields, ok := t.current(key{collection, id}); ok {
			docs = append(docs, docstore.Document{ID: id, Fields: fields.Clone()})
		}
	}
	return apply(docs, q), nil
}

func (t *transaction) Create(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := key{collection, id}
	if _, exists := t.current(k); exists {
		return docstore.ErrAlreadyExists
	}
	t.stage(k, &pendingWrite{fields: fields.Clone()})
	return nil
}

func (t *transaction) Set(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.stage(key{collection, id}, &pendingWrite{fields: fields.Clone()})
	return nil
}

func (t *transaction) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := key{collection, id}
	base, ok := t.current(k)
	if !ok {
		return docstore.ErrNotFound
	}
	t.stage(k, &pendingWrite{fields: merge(base, fields)})
	return nil
}

func (t *transaction) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := key{collection, id}
	t.observe(k)
	t.stage(k, &pendingWrite{deleted: true})
	return nil
}
