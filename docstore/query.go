package docstore

import (
	"fmt"
	"reflect"
	"regexp"
)

// Op is a comparison operator usable in a Filter.
type Op string

const (
	Eq  Op = "=="
	Lt  Op = "<"
	Lte Op = "<="
	Gt  Op = ">"
	Gte Op = ">="
	In  Op = "in"
)

// Filter constrains one named field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects documents of one collection. All filters must match.
type Query struct {
	Where      []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Where starts a query with a single filter.
func Where(field string, op Op, value any) Query {
	return Query{}.And(field, op, value)
}

// And returns a copy of q with one more filter.
func (q Query) And(field string, op Op, value any) Query {
	where := make([]Filter, len(q.Where), len(q.Where)+1)
	copy(where, q.Where)
	q.Where = append(where, Filter{Field: field, Op: op, Value: value})
	return q
}

// Ordered returns a copy of q sorted by field.
func (q Query) Ordered(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks operators, field names and the shape of `in` values.
func (q Query) Validate() error {
	for _, f := range q.Where {
		if !fieldPattern.MatchString(f.Field) {
			return fmt.Errorf("%w: field %q", ErrInvalidQuery, f.Field)
		}
		switch f.Op {
		case Eq, Lt, Lte, Gt, Gte:
		case In:
			if _, err := InValues(f.Value); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: operator %q", ErrInvalidQuery, f.Op)
		}
	}
	if q.OrderBy != "" && !fieldPattern.MatchString(q.OrderBy) {
		return fmt.Errorf("%w: order field %q", ErrInvalidQuery, q.OrderBy)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	return nil
}

// InValues flattens the operand of an `in` filter into a slice.
func InValues(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: `in` expects a slice, got %T", ErrInvalidQuery, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
