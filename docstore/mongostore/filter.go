package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"salonbook/docstore"
)

var operators = map[docstore.Op]string{
	docstore.Lt:  "$lt",
	docstore.Lte: "$lte",
	docstore.Gt:  "$gt",
	docstore.Gte: "$gte",
	docstore.In:  "$in",
}

// buildFilter translates q.Where into a Mongo filter document.
func buildFilter(q docstore.Query) (bson.M, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if len(q.Where) == 0 {
		return bson.M{}, nil
	}

	clauses := make(bson.A, 0, len(q.Where))
	for _, f := range q.Where {
		value := f.Value
		if t, ok := value.(*time.Time); ok && t != nil {
			value = *t
		}
		switch f.Op {
		case docstore.Eq:
			clauses = append(clauses, bson.M{f.Field: value})
		case docstore.In:
			values, err := docstore.InValues(value)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, bson.M{f.Field: bson.M{"$in": bson.A(values)}})
		default:
			clauses = append(clauses, bson.M{f.Field: bson.M{operators[f.Op]: value}})
		}
	}
	return bson.M{"$and": clauses}, nil
}

func buildSort(q docstore.Query) bson.D {
	if q.OrderBy == "" {
		return bson.D{{Key: "_id", Value: 1}}
	}
	dir := 1
	if q.Descending {
		dir = -1
	}
	return bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: 1}}
}
