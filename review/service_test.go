package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/apperr"
	"salonbook/docstore"
	"salonbook/docstore/memstore"
	"salonbook/salon"
)

func TestService_SubmitMaintainsRunningMean(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, docstore.Salons, "s1", docstore.Fields{"rating": salon.DefaultRating, "reviewCount": 0}))

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := NewService(store).WithClock(func() time.Time {
		now = now.Add(time.Minute)
		return now
	})

	for _, rating := range []int{4, 2, 3} {
		_, err := svc.Submit(ctx, Input{SalonID: "s1", ClientID: "c1", Rating: rating, Comment: "ok"})
		require.NoError(t, err)
	}

	s, err := salon.Load(ctx, store, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, s.ReviewCount)
	assert.InDelta(t, 3.0, s.Rating, 1e-9)

	reviews, err := svc.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	assert.Equal(t, 3, reviews[0].Rating, "newest first")
	assert.Equal(t, 4, reviews[2].Rating)
}

func TestService_SubmitRejects(t *testing.T) {
	store := memstore.New()
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.Submit(ctx, Input{SalonID: "s1", ClientID: "c1", Rating: 6})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Submit(ctx, Input{SalonID: "missing", ClientID: "c1", Rating: 5})
	require.ErrorIs(t, err, salon.ErrNotFound)
	assert.Equal(t, 0, store.Count(docstore.Reviews))
}
