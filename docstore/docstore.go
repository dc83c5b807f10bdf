// Package docstore defines the document-store boundary used by every workflow:
// keyed, schemaless documents grouped in collections, field-predicate queries
// and atomic transactions.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound signals that the requested document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrAlreadyExists signals that Create hit an existing document key.
	ErrAlreadyExists = errors.New("docstore: document already exists")
	// ErrTransactionConflict signals that a transaction lost a race against a
	// concurrent modification and was rolled back.
	ErrTransactionConflict = errors.New("docstore: transaction conflict")
	// ErrUnavailable wraps backend failures that are not otherwise classified.
	ErrUnavailable = errors.New("docstore: backend unavailable")
	// ErrInvalidQuery signals a malformed query (unknown operator, bad field name).
	ErrInvalidQuery = errors.New("docstore: invalid query")
)

// Collection names shared by the workflows.
const (
	Users        = "users"
	Salons       = "salons"
	Stylists     = "stylists"
	Appointments = "appointments"
	Reviews      = "reviews"
	Credentials  = "credentials"
	Sessions     = "sessions"
	BusinessIDs  = "businessIds"
)

// Document is a stored record together with its key.
type Document struct {
	ID     string
	Fields Fields
}

// Reader is the read side of a store or transaction.
type Reader interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
}

// Writer is the write side of a store or transaction.
type Writer interface {
	// Create inserts a new document and fails with ErrAlreadyExists when the
	// key is taken.
	Create(ctx context.Context, collection, id string, fields Fields) error
	// Set replaces the document, creating it when missing.
	Set(ctx context.Context, collection, id string, fields Fields) error
	// Update merges top-level fields into an existing document.
	Update(ctx context.Context, collection, id string, fields Fields) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
}

// Tx is the view handed to a transaction function.
type Tx interface {
	Reader
	Writer
}

// Store is a document store with transactional support.
type Store interface {
	Reader
	Writer
	// RunTransaction executes fn atomically. When fn returns an error every
	// write is discarded and the error is returned unchanged.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
