package docstore

import (
	"encoding/json"
	"time"
)

// Fields is the schemaless body of a document. Values are JSON-like: strings,
// numbers, booleans, time.Time, slices and nested maps.
//
// Backends hand values back in their native decoded form (JSON strings for
// timestamps, float64 for numbers, []any for arrays), so readers go through
// the typed accessors below instead of asserting directly.
type Fields map[string]any

// String returns the string stored at key, or "".
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Float returns the numeric value stored at key, or 0.
func (f Fields) Float(key string) float64 {
	return toFloat(f[key])
}

// Int returns the numeric value stored at key truncated to int.
func (f Fields) Int(key string) int {
	return int(toFloat(f[key]))
}

// Bool returns the boolean stored at key.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Time returns the timestamp stored at key, or the zero time.
func (f Fields) Time(key string) time.Time {
	t, _ := ToTime(f[key])
	return t
}

// Strings returns the string list stored at key. Missing keys yield an empty,
// non-nil slice.
func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

// Map returns the nested document stored at key, or nil.
func (f Fields) Map(key string) Fields {
	switch v := f[key].(type) {
	case Fields:
		return v
	case map[string]any:
		return Fields(v)
	default:
		return nil
	}
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Clone returns a deep copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Fields:
		return t.Clone()
	case map[string]any:
		return Fields(t).Clone()
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

// ToTime converts the stored representation of a timestamp into time.Time.
// JSON-backed stores return RFC 3339 strings.
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

// ToFloat reports whether v is numeric and returns it as float64.
func ToFloat(v any) (float64, bool) {
	switch v.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return toFloat(v), true
	default:
		return 0, false
	}
}
