// Package mongostore implements docstore.Store on MongoDB. Each docstore
// collection maps to a Mongo collection and the document id is stored as _id.
// Transactions use client sessions and require a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"salonbook/docstore"
)

var _ docstore.Store = (*Store)(nil)

// Store is a docstore.Store backed by a Mongo database.
type Store struct {
	executor
	client *mongo.Client
}

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongostore: empty connection uri")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	return New(client, database), nil
}

// New wraps an existing client.
func New(client *mongo.Client, database string) *Store {
	return &Store{executor: executor{db: client.Database(database)}, client: client}
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// RunTransaction implements docstore.Store.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return classify("start session", err)
	}
	defer sess.EndSession(context.Background())

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(txOpts); err != nil {
			return classify("start transaction", err)
		}
		if err := fn(sc, &executor{db: s.db, sess: sess}); err != nil {
			_ = sess.AbortTransaction(context.Background())
			return err
		}
		if err := sess.CommitTransaction(sc); err != nil {
			_ = sess.AbortTransaction(context.Background())
			return classify("commit", err)
		}
		return nil
	})
}

type executor struct {
	db   *mongo.Database
	sess mongo.Session
}

// bind attaches the transaction session, if any, to ctx.
func (e *executor) bind(ctx context.Context) context.Context {
	if e.sess == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, e.sess)
}

func (e *executor) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw bson.M
	err := e.db.Collection(collection).FindOne(e.bind(ctx), bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, classify("get", err)
	}
	return toDocument(raw), nil
}

func (e *executor) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	filter, err := buildFilter(q)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(buildSort(q))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	ctx = e.bind(ctx)
	cur, err := e.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, classify("query", err)
	}
	defer cur.Close(ctx)

	docs := make([]docstore.Document, 0)
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, classify("decode", err)
		}
		docs = append(docs, toDocument(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, classify("cursor", err)
	}
	return docs, nil
}

func (e *executor) Create(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if _, err := e.db.Collection(collection).InsertOne(e.bind(ctx), toBSON(id, fields)); err != nil {
		return classify("create", err)
	}
	return nil
}

func (e *executor) Set(ctx context.Context, collection, id string, fields docstore.Fields) error {
	_, err := e.db.Collection(collection).ReplaceOne(e.bind(ctx), bson.M{"_id": id}, toBSON(id, fields),
		options.Replace().SetUpsert(true))
	if err != nil {
		return classify("set", err)
	}
	return nil
}

func (e *executor) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if len(fields) == 0 {
		_, err := e.Get(ctx, collection, id)
		return err
	}
	res, err := e.db.Collection(collection).UpdateOne(e.bind(ctx), bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return classify("update", err)
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (e *executor) Delete(ctx context.Context, collection, id string) error {
	if _, err := e.db.Collection(collection).DeleteOne(e.bind(ctx), bson.M{"_id": id}); err != nil {
		return classify("delete", err)
	}
	return nil
}

func toBSON(id string, fields docstore.Fields) bson.M {
	doc := bson.M{"_id": id}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		doc[k] = v
	}
	return doc
}

func toDocument(raw bson.M) docstore.Document {
	id, _ := raw["_id"].(string)
	fields := make(docstore.Fields, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		fields[k] = normalize(v)
	}
	return docstore.Document{ID: id, Fields: fields}
}

// normalize converts driver-specific decoded types into the plain forms the
// rest of the code reads through docstore.Fields.
func normalize(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC()
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.A:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalize(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	default:
		return v
	}
}

func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if mongo.IsDuplicateKeyError(err) {
		return docstore.ErrAlreadyExists
	}
	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) && (srvErr.HasErrorLabel("TransientTransactionError") || srvErr.HasErrorCode(112)) {
		return fmt.Errorf("%w: %s: %v", docstore.ErrTransactionConflict, op, err)
	}
	return fmt.Errorf("%w: mongostore: %s: %w", docstore.ErrUnavailable, op, err)
}
