package memstore

import (
	"reflect"
	"strings"
	"time"

	"salonbook/docstore"
)

func matchesAll(fields docstore.Fields, filters []docstore.Filter) bool {
	for _, f := range filters {
		if !matches(fields, f) {
			return false
		}
	}
	return true
}

func matches(fields docstore.Fields, f docstore.Filter) bool {
	v, ok := fields[f.Field]
	if !ok {
		return false
	}
	switch f.Op {
	case docstore.Eq:
		return equal(v, f.Value)
	case docstore.In:
		candidates, err := docstore.InValues(f.Value)
		if err != nil {
			return false
		}
		for _, c := range candidates {
			if equal(v, c) {
				return true
			}
		}
		return false
	}

	c, comparable := compare(v, f.Value)
	if !comparable {
		return false
	}
	switch f.Op {
	case docstore.Lt:
		return c < 0
	case docstore.Lte:
		return c <= 0
	case docstore.Gt:
		return c > 0
	case docstore.Gte:
		return c >= 0
	default:
		return false
	}
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two stored values. Numbers compare numerically, timestamps
// chronologically (RFC 3339 strings are accepted on either side), strings
// lexically and booleans false before true.
func compare(a, b any) (int, bool) {
	if fa, ok := docstore.ToFloat(a); ok {
		if fb, ok := docstore.ToFloat(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	_, aIsTime := a.(time.Time)
	_, bIsTime := b.(time.Time)
	if aIsTime || bIsTime {
		ta, okA := docstore.ToTime(a)
		tb, okB := docstore.ToTime(b)
		if !okA || !okB {
			return 0, false
		}
		return ta.Compare(tb), true
	}

	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb), true
		}
		return 0, false
	}

	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0, true
			case !ba:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}
