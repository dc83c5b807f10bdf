// Package pgstore implements docstore.Store on a single PostgreSQL table of
// JSONB documents keyed by (collection, id). Transactions run at SERIALIZABLE
// isolation so that read-then-write sequences fail instead of interleaving.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"salonbook/docstore"
)

var _ docstore.Store = (*Store)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a docstore.Store backed by PostgreSQL.
type Store struct {
	executor
	pool *pgxpool.Pool
}

// New wraps an open pool. The documents table must exist (see db.Migrate).
func New(pool *pgxpool.Pool) *Store {
	return &Store{executor: executor{q: pool}, pool: pool}
}

// RunTransaction implements docstore.Store.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return classify("begin", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &executor{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit", err)
	}
	return nil
}

type executor struct {
	q querier
}

func (e *executor) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	const selectSQL = `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	var raw []byte
	if err := e.q.QueryRow(ctx, selectSQL, collection, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, classify("get", err)
	}
	fields, err := decode(raw)
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}

func (e *executor) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	sql, args, err := buildSelect(collection, q)
	if err != nil {
		return nil, err
	}

	rows, err := e.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify("query", err)
	}
	defer rows.Close()

	docs := make([]docstore.Document, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, classify("scan", err)
		}
		fields, err := decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, docstore.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query rows", err)
	}
	return docs, nil
}

func (e *executor) Create(ctx context.Context, collection, id string, fields docstore.Fields) error {
	const insertSQL = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`

	raw, err := encode(fields)
	if err != nil {
		return err
	}
	if _, err := e.q.Exec(ctx, insertSQL, collection, id, raw); err != nil {
		return classify("create", err)
	}
	return nil
}

func (e *executor) Set(ctx context.Context, collection, id string, fields docstore.Fields) error {
	const upsertSQL = `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`

	raw, err := encode(fields)
	if err != nil {
		return err
	}
	if _, err := e.q.Exec(ctx, upsertSQL, collection, id, raw); err != nil {
		return classify("set", err)
	}
	return nil
}

func (e *executor) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	const updateSQL = `
		UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2
	`

	raw, err := encode(fields)
	if err != nil {
		return err
	}
	tag, err := e.q.Exec(ctx, updateSQL, collection, id, raw)
	if err != nil {
		return classify("update", err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (e *executor) Delete(ctx context.Context, collection, id string) error {
	const deleteSQL = `DELETE FROM documents WHERE collection = $1 AND id = $2`

	if _, err := e.q.Exec(ctx, deleteSQL, collection, id); err != nil {
		return classify("delete", err)
	}
	return nil
}

// timeLayout is RFC 3339 with a fixed nine-digit fraction. Stored UTC
// timestamps are then equal-width strings, so ORDER BY on the JSON value
// sorts them chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encode(fields docstore.Fields) ([]byte, error) {
	if fields == nil {
		fields = docstore.Fields{}
	}
	raw, err := json.Marshal(normalize(map[string]any(fields)))
	if err != nil {
		return nil, fmt.Errorf("pgstore: encode document: %w", err)
	}
	return raw, nil
}

// normalize rewrites every timestamp in v into timeLayout.
func normalize(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(timeLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(timeLayout)
	case docstore.Fields:
		return normalize(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

func decode(raw []byte) (docstore.Fields, error) {
	fields := docstore.Fields{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("pgstore: decode document: %w", err)
	}
	return fields, nil
}

// classify maps driver errors onto the docstore taxonomy.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return docstore.ErrAlreadyExists
		case "40001", "40P01":
			return fmt.Errorf("%w: %s: %s", docstore.ErrTransactionConflict, op, pgErr.Message)
		}
	}
	return fmt.Errorf("%w: pgstore: %s: %w", docstore.ErrUnavailable, op, err)
}
