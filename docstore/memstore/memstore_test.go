package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/docstore"
)

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Create(ctx, "salons", "s1", docstore.Fields{"name": "Cut", "rating": 5.0}))
	err := s.Create(ctx, "salons", "s1", docstore.Fields{"name": "Other"})
	require.ErrorIs(t, err, docstore.ErrAlreadyExists)

	doc, err := s.Get(ctx, "salons", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Cut", doc.Fields.String("name"))

	require.NoError(t, s.Update(ctx, "salons", "s1", docstore.Fields{"rating": 4.5}))
	doc, err = s.Get(ctx, "salons", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Cut", doc.Fields.String("name"))
	assert.Equal(t, 4.5, doc.Fields.Float("rating"))

	require.ErrorIs(t, s.Update(ctx, "salons", "missing", docstore.Fields{"a": 1}), docstore.ErrNotFound)

	require.NoError(t, s.Set(ctx, "salons", "s1", docstore.Fields{"name": "Replaced"}))
	doc, err = s.Get(ctx, "salons", "s1")
	require.NoError(t, err)
	assert.False(t, doc.Fields.Has("rating"))

	require.NoError(t, s.Delete(ctx, "salons", "s1"))
	require.NoError(t, s.Delete(ctx, "salons", "s1"))
	_, err = s.Get(ctx, "salons", "s1")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, "salons", "s1", docstore.Fields{"stylistIds": []string{"a"}}))

	doc, err := s.Get(ctx, "salons", "s1")
	require.NoError(t, err)
	doc.Fields["stylistIds"] = []string{"mutated"}

	again, err := s.Get(ctx, "salons", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.Fields.Strings("stylistIds"))
}

func TestStore_Query(t *testing.T) {
	ctx := context.Background()
	s := New()
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	seed := map[string]docstore.Fields{
		"a1": {"salonId": "s1", "status": "confirmed", "servicePrice": 30.0, "date": day},
		"a2": {"salonId": "s1", "status": "completed", "servicePrice": 20.0, "date": day.Add(2 * time.Hour)},
		"a3": {"salonId": "s1", "status": "pending", "servicePrice": 100.0, "date": day},
		"a4": {"salonId": "s2", "status": "confirmed", "servicePrice": 10.0, "date": day},
		"a5": {"salonId": "s1", "status": "confirmed", "servicePrice": 70.0, "date": day.AddDate(0, 0, -3)},
	}
	for id, f := range seed {
		require.NoError(t, s.Create(ctx, "appointments", id, f))
	}

	q := docstore.Where("salonId", docstore.Eq, "s1").
		And("date", docstore.Gte, day).
		And("date", docstore.Lte, day.Add(24*time.Hour-time.Nanosecond)).
		And("status", docstore.In, []string{"confirmed", "completed"})
	docs, err := s.Query(ctx, "appointments", q)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a1", docs[0].ID)
	assert.Equal(t, "a2", docs[1].ID)

	docs, err = s.Query(ctx, "appointments", docstore.Where("salonId", docstore.Eq, "s1").Ordered("servicePrice", true))
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, "a3", docs[0].ID)
	assert.Equal(t, "a2", docs[3].ID)

	q = docstore.Where("salonId", docstore.Eq, "s1").Ordered("servicePrice", false)
	q.Limit = 1
	docs, err = s.Query(ctx, "appointments", q)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a2", docs[0].ID)

	docs, err = s.Query(ctx, "appointments", docstore.Where("salonId", docstore.Eq, "nobody"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStore_QueryRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Query(ctx, "salons", docstore.Where("name; drop", docstore.Eq, "x"))
	require.ErrorIs(t, err, docstore.ErrInvalidQuery)

	_, err = s.Query(ctx, "salons", docstore.Where("status", docstore.In, "confirmed"))
	require.ErrorIs(t, err, docstore.ErrInvalidQuery)

	_, err = s.Query(ctx, "salons", docstore.Where("status", docstore.Op("!="), "x"))
	require.ErrorIs(t, err, docstore.ErrInvalidQuery)
}

func TestStore_TransactionCommits(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, "salons", "s1", docstore.Fields{"stylistIds": []string{}}))

	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(ctx, "salons", "s1")
		if err != nil {
			return err
		}
		ids := append(doc.Fields.Strings("stylistIds"), "st1")
		if err := tx.Update(ctx, "salons", "s1", docstore.Fields{"stylistIds": ids}); err != nil {
			return err
		}
		if err := tx.Create(ctx, "stylists", "st1", docstore.Fields{"salonId": "s1"}); err != nil {
			return err
		}

		// Reads inside the transaction see its own writes.
		docs, err := tx.Query(ctx, "stylists", docstore.Where("salonId", docstore.Eq, "s1"))
		if err != nil {
			return err
		}
		if len(docs) != 1 {
			t.Fatalf("expected staged stylist to be visible, got %d", len(docs))
		}
		return nil
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "salons", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"st1"}, doc.Fields.Strings("stylistIds"))
	assert.Equal(t, 1, s.Count("stylists"))
}

func TestStore_TransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Create(ctx, "businessIds", "b-1", docstore.Fields{"salonId": "s1"}); err != nil {
			return err
		}
		if err := tx.Create(ctx, "salons", "s1", docstore.Fields{"businessId": "B-1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Count("businessIds"))
	assert.Equal(t, 0, s.Count("salons"))
}

func TestStore_TransactionCreateConflict(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, "credentials", "ana@example.com", docstore.Fields{"uid": "u1"}))

	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Create(ctx, "credentials", "ana@example.com", docstore.Fields{"uid": "u2"})
	})
	require.ErrorIs(t, err, docstore.ErrAlreadyExists)
}

func TestStore_TransactionDetectsConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, "salons", "s1", docstore.Fields{"stylistIds": []string{}}))

	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if _, err := tx.Get(ctx, "salons", "s1"); err != nil {
			return err
		}
		// A write outside the transaction lands between read and commit.
		if err := s.Update(ctx, "salons", "s1", docstore.Fields{"stylistIds": []string{"x"}}); err != nil {
			return err
		}
		return tx.Update(ctx, "salons", "s1", docstore.Fields{"stylistIds": []string{"y"}})
	})
	require.ErrorIs(t, err, docstore.ErrTransactionConflict)

	doc, err := s.Get(ctx, "salons", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, doc.Fields.Strings("stylistIds"))
}

func TestStore_TransactionDetectsPhantomCreate(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Create(ctx, "businessIds", "b-1", docstore.Fields{"salonId": "s1"}); err != nil {
			return err
		}
		return s.Create(ctx, "businessIds", "b-1", docstore.Fields{"salonId": "s2"})
	})
	require.ErrorIs(t, err, docstore.ErrTransactionConflict)

	doc, err := s.Get(ctx, "businessIds", "b-1")
	require.NoError(t, err)
	assert.Equal(t, "s2", doc.Fields.String("salonId"))
}

func TestStore_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()

	_, err := s.Get(ctx, "salons", "s1")
	require.ErrorIs(t, err, context.Canceled)
	err = s.RunTransaction(ctx, func(context.Context, docstore.Tx) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
