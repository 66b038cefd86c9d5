package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps each collection in a MongoDB collection of the same name.
type MongoStore struct {
	db *mongo.Database
	// owned is set when the store created the client and must disconnect it.
	owned bool
}

// NewMongoStore connects to uri and uses database name.
// The driver connects lazily; call Ping to check reachability.
func NewMongoStore(ctx context.Context, uri, name string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &MongoStore{db: client.Database(name), owned: true}, nil
}

// NewMongoStoreFromDatabase wraps an existing database handle. Close leaves
// the underlying client connected.
func NewMongoStoreFromDatabase(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (m *MongoStore) Insert(ctx context.Context, collection string, doc map[string]any) (string, error) {
	res, err := m.db.Collection(collection).InsertOne(ctx, bson.M(withoutIDRaw(doc)))
	if err != nil {
		return "", err
	}
	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	default:
		return fmt.Sprint(id), nil
	}
}

func (m *MongoStore) Find(ctx context.Context, collection string, filter map[string]any, limit int) ([]map[string]any, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	q := bson.M{}
	for k, v := range filter {
		q[k] = v
	}
	cur, err := m.db.Collection(collection).Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}
	result := make([]map[string]any, 0, len(raw))
	for _, d := range raw {
		result = append(result, normalizeBSON(d).(map[string]any))
	}
	return result, nil
}

func (m *MongoStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, readpref.Primary())
}

func (m *MongoStore) Name() string { return m.db.Name() }

func (m *MongoStore) Close(ctx context.Context) error {
	if !m.owned {
		return nil
	}
	return m.db.Client().Disconnect(ctx)
}

// withoutIDRaw drops IDField without the JSON round trip, so time.Time
// values are stored as BSON dates.
func withoutIDRaw(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

// normalizeBSON converts driver types into plain Go values that encode to
// JSON the same way the other backends do.
func normalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeBSON(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeBSON(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeBSON(val)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Decimal128:
		return t.String()
	default:
		return v
	}
}
