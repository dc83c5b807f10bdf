package docstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_AccessorsAcceptDecodedForms(t *testing.T) {
	ts := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	f := Fields{
		"name":        "Cut & Co",
		"rating":      json.Number("4.5"),
		"reviewCount": float64(3),
		"createdAt":   ts.Format(time.RFC3339Nano),
		"stylistIds":  []any{"a", "b", 7},
		"schedule":    map[string]any{"monday": map[string]any{"isWorking": true}},
	}

	assert.Equal(t, "Cut & Co", f.String("name"))
	assert.Equal(t, 4.5, f.Float("rating"))
	assert.Equal(t, 3, f.Int("reviewCount"))
	assert.True(t, f.Time("createdAt").Equal(ts))
	assert.Equal(t, []string{"a", "b"}, f.Strings("stylistIds"))
	assert.True(t, f.Map("schedule").Map("monday").Bool("isWorking"))

	assert.Equal(t, "", f.String("missing"))
	assert.NotNil(t, f.Strings("missing"))
	assert.Empty(t, f.Strings("missing"))
	assert.True(t, f.Time("missing").IsZero())
}

func TestFields_CloneIsDeep(t *testing.T) {
	f := Fields{
		"ids":    []string{"a"},
		"nested": map[string]any{"k": []any{"v"}},
	}
	c := f.Clone()
	c["ids"].([]string)[0] = "changed"
	c.Map("nested")["k"].([]any)[0] = "changed"

	assert.Equal(t, []string{"a"}, f.Strings("ids"))
	assert.Equal(t, []any{"v"}, f.Map("nested")["k"])
}

func TestQuery_Validate(t *testing.T) {
	require.NoError(t, Where("salonId", Eq, "s1").And("status", In, []string{"confirmed"}).Validate())
	require.ErrorIs(t, Where("bad field", Eq, 1).Validate(), ErrInvalidQuery)
	require.ErrorIs(t, Where("status", In, 3).Validate(), ErrInvalidQuery)
	require.ErrorIs(t, Query{OrderBy: "x'--"}.Validate(), ErrInvalidQuery)
	require.ErrorIs(t, Query{Limit: -1}.Validate(), ErrInvalidQuery)
}

func TestQuery_AndDoesNotAlias(t *testing.T) {
	base := Where("salonId", Eq, "s1")
	a := base.And("status", Eq, "pending")
	b := base.And("status", Eq, "confirmed")

	require.Len(t, base.Where, 1)
	assert.Equal(t, "pending", a.Where[1].Value)
	assert.Equal(t, "confirmed", b.Where[1].Value)
}
