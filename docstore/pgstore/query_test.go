package pgstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/docstore"
)

func TestBuildSelect(t *testing.T) {
	from := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	q := docstore.Where("salonId", docstore.Eq, "s1").
		And("date", docstore.Gte, from).
		And("status", docstore.In, []string{"confirmed", "completed"}).
		And("servicePrice", docstore.Gt, 10).
		Ordered("clientId", false)

	sql, args, err := buildSelect("appointments", q)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT id, data FROM documents WHERE collection = $1`+
			` AND (data->>'salonId') = $2`+
			` AND (data->>'date')::timestamptz >= $3`+
			` AND (data->>'status') = ANY($4)`+
			` AND (data->>'servicePrice')::double precision > $5`+
			` ORDER BY data->'clientId', id`,
		sql)
	assert.Equal(t, []any{"appointments", "s1", from, []string{"confirmed", "completed"}, 10.0}, args)
}

func TestBuildSelect_DescendingWithLimit(t *testing.T) {
	q := docstore.Query{OrderBy: "createdAt", Descending: true, Limit: 5}
	sql, args, err := buildSelect("reviews", q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT id, data FROM documents WHERE collection = $1 ORDER BY data->'createdAt' DESC, id LIMIT 5`, sql)
	assert.Equal(t, []any{"reviews"}, args)
}

func TestBuildSelect_EmptyIn(t *testing.T) {
	sql, args, err := buildSelect("stylists", docstore.Where("salonId", docstore.In, []string{}))
	require.NoError(t, err)
	assert.Contains(t, sql, "AND FALSE")
	assert.Len(t, args, 1)
}

func TestBuildSelect_Rejects(t *testing.T) {
	_, _, err := buildSelect("salons", docstore.Where("x') OR 1=1 --", docstore.Eq, "a"))
	require.ErrorIs(t, err, docstore.ErrInvalidQuery)

	_, _, err = buildSelect("salons", docstore.Where("tags", docstore.Eq, []string{"a"}))
	require.ErrorIs(t, err, docstore.ErrInvalidQuery)

	_, _, err = buildSelect("salons", docstore.Where("status", docstore.In, []any{"a", 1}))
	require.ErrorIs(t, err, docstore.ErrInvalidQuery)
}

func TestEncode_TimestampsSortChronologically(t *testing.T) {
	base := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(100 * time.Millisecond),
		base.Add(123 * time.Millisecond),
		base.Add(time.Second),
	}
	var encoded []string
	for _, ts := range times {
		raw, err := encode(docstore.Fields{"at": ts.In(time.FixedZone("UTC+2", 2*3600))})
		require.NoError(t, err)
		fields, err := decode(raw)
		require.NoError(t, err)
		s := fields.String("at")
		require.Len(t, s, len(timeLayout)-len("Z07:00")+1, s)
		assert.True(t, fields.Time("at").Equal(ts), "round trip of %s", s)
		encoded = append(encoded, s)
	}
	for i := 1; i < len(encoded); i++ {
		assert.Less(t, encoded[i-1], encoded[i])
	}
}

func TestEncode_NestedTimestamps(t *testing.T) {
	at := time.Date(2024, 3, 12, 10, 0, 0, 500000000, time.UTC)
	raw, err := encode(docstore.Fields{
		"history":     []any{map[string]any{"at": at}},
		"cancelledAt": &at,
	})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"2024-03-12T10:00:00.500000000Z"`)
	assert.NotContains(t, string(raw), `"2024-03-12T10:00:00.5Z"`)
}
