package pgstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"salonbook/docstore"
)

// buildSelect renders q as SQL over the documents table. Field names are
// validated by Query.Validate before they are spliced into the statement;
// values always travel as parameters.
func buildSelect(collection string, q docstore.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	args := []any{collection}
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)

	for _, f := range q.Where {
		clause, arg, err := predicate(f, len(args)+1)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(clause)
		if arg != nil {
			args = append(args, arg)
		}
	}

	sb.WriteString(" ORDER BY ")
	if q.OrderBy != "" {
		sb.WriteString("data->'" + q.OrderBy + "'")
		if q.Descending {
			sb.WriteString(" DESC")
		}
		sb.WriteString(", ")
	}
	sb.WriteString("id")

	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	return sb.String(), args, nil
}

// predicate returns the SQL for one filter and the argument bound to $n. The
// JSON text is cast according to the Go type of the operand.
func predicate(f docstore.Filter, n int) (string, any, error) {
	if f.Op == docstore.In {
		values, err := docstore.InValues(f.Value)
		if err != nil {
			return "", nil, err
		}
		if len(values) == 0 {
			return "FALSE", nil, nil
		}
		column, err := columnFor(f.Field, values[0])
		if err != nil {
			return "", nil, err
		}
		arg, err := arrayArg(values)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s = ANY($%d)", column, n), arg, nil
	}

	column, err := columnFor(f.Field, f.Value)
	if err != nil {
		return "", nil, err
	}
	op := string(f.Op)
	if f.Op == docstore.Eq {
		op = "="
	}
	return fmt.Sprintf("%s %s $%d", column, op, n), scalarArg(f.Value), nil
}

func columnFor(field string, sample any) (string, error) {
	text := "(data->>'" + field + "')"
	switch sample.(type) {
	case string:
		return text, nil
	case time.Time, *time.Time:
		return text + "::timestamptz", nil
	case bool:
		return text + "::boolean", nil
	default:
		if _, ok := docstore.ToFloat(sample); ok {
			return text + "::double precision", nil
		}
		return "", fmt.Errorf("%w: unsupported operand %T for %q", docstore.ErrInvalidQuery, sample, field)
	}
}

func scalarArg(v any) any {
	if f, ok := docstore.ToFloat(v); ok {
		return f
	}
	if t, ok := v.(*time.Time); ok && t != nil {
		return *t
	}
	return v
}

func arrayArg(values []any) (any, error) {
	switch values[0].(type) {
	case string:
		out := make([]string, len(values))
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: mixed `in` operand types", docstore.ErrInvalidQuery)
			}
			out[i] = s
		}
		return out, nil
	default:
		out := make([]float64, len(values))
		for i, v := range values {
			f, ok := docstore.ToFloat(v)
			if !ok {
				return nil, fmt.Errorf("%w: `in` supports strings and numbers, got %T", docstore.ErrInvalidQuery, v)
			}
			out[i] = f
		}
		return out, nil
	}
}
