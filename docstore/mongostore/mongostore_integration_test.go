package mongostore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"salonbook/docstore"
)

// TestStore_Integration runs against a live replica set named by MONGO_URI.
func TestStore_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI is empty; set it to a MongoDB replica set to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := Connect(ctx, uri, fmt.Sprintf("salonbook_it_%d", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() {
		_ = s.db.Drop(context.Background())
		_ = s.Close(context.Background())
	}()

	if err := s.Create(ctx, docstore.Salons, "s1", docstore.Fields{"city": "Lyon", "rating": 4.5}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(ctx, docstore.Salons, "s1", docstore.Fields{}); !errors.Is(err, docstore.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := s.Update(ctx, docstore.Salons, "missing", docstore.Fields{"a": 1}); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	docs, err := s.Query(ctx, docstore.Salons, docstore.Where("rating", docstore.Gte, 4))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "s1" {
		t.Fatalf("expected s1, got %+v", docs)
	}

	boom := errors.New("boom")
	err = s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Create(ctx, docstore.BusinessIDs, "b-1", docstore.Fields{"salonId": "s1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if _, err := s.Get(ctx, docstore.BusinessIDs, "b-1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected rolled back claim, got %v", err)
	}
}
