package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection holds graphs in the configured database.
const DefaultCollection = "graphs"

// MongoStore keeps graphs as documents of one collection, keyed by name.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// record is the stored document: the entry plus the graph bytes.
type record struct {
	Entry `bson:",inline"`
	Data  []byte `bson:"data"`
}

// NewMongoStore connects to uri and checks the connection.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoStore{client: client, coll: client.Database(database).Collection(DefaultCollection)}, nil
}

func (s *MongoStore) Put(ctx context.Context, name string, data []byte) (Entry, error) {
	e, err := newEntry(name, data)
	if err != nil {
		return Entry{}, err
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": name}, record{Entry: e, Data: data},
		options.Replace().SetUpsert(true))
	if err != nil {
		return Entry{}, fmt.Errorf("mongo put %s: %w", name, err)
	}
	return e, nil
}

func (s *MongoStore) Get(ctx context.Context, name string) ([]byte, Entry, error) {
	var r record
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, Entry{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, Entry{}, fmt.Errorf("mongo get %s: %w", name, err)
	}
	return r.Data, r.Entry, nil
}

// listOptions sorts by name and leaves the graph bytes behind.
func listOptions() *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"data": 0})
}

func (s *MongoStore) List(ctx context.Context) ([]Entry, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, listOptions())
	if err != nil {
		return nil, fmt.Errorf("mongo list: %w", err)
	}
	var out []Entry
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo list: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, name string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return fmt.Errorf("mongo delete %s: %w", name, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
