package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore maps each collection onto a MongoDB collection of the same name.
// The user fields live under "data" so metadata never collides with them.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{
		client: client,
		db:     client.Database(database),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

type mongoDocument struct {
	ID        string    `bson:"_id"`
	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	Data      bson.Raw  `bson:"data"`
}

// toDocument goes through relaxed extended JSON so nested documents come back
// as map[string]any instead of primitive.D.
func (d mongoDocument) toDocument(collection string) (Document, error) {
	data := map[string]any{}
	if len(d.Data) > 0 {
		ext, err := bson.MarshalExtJSON(d.Data, false, false)
		if err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		if err := json.Unmarshal(ext, &data); err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}
	return Document{
		ID:         d.ID,
		Collection: collection,
		Version:    d.Version,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
		Data:       data,
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := checkCollection(collection); err != nil {
		return Document{}, err
	}
	var raw mongoDocument
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, wrapMongoErr("get", err)
	}
	return raw.toDocument(collection)
}

func (s *MongoStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if err := checkFilters(filters); err != nil {
		return nil, err
	}
	filter := bson.M{}
	for _, f := range filters {
		v, err := normalizeValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		// plain equality would also match arrays holding v
		filter["data."+f.Field] = bson.M{"$eq": v, "$not": bson.M{"$type": "array"}}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapMongoErr("query", err)
	}
	var raws []mongoDocument
	if err := cur.All(ctx, &raws); err != nil {
		return nil, wrapMongoErr("query", err)
	}

	docs := make([]Document, 0, len(raws))
	for _, raw := range raws {
		doc, err := raw.toDocument(collection)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *MongoStore) Create(ctx context.Context, collection, id string, data map[string]any) (Document, error) {
	if err := checkCollection(collection); err != nil {
		return Document{}, err
	}
	clean, err := normalize(data)
	if err != nil {
		return Document{}, err
	}
	if id == "" {
		id = newID()
	}
	now := s.now()
	doc := Document{
		ID:         id,
		Collection: collection,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
		Data:       merge(nil, clean),
	}

	_, err = s.db.Collection(collection).InsertOne(ctx, bson.M{
		"_id":        doc.ID,
		"version":    doc.Version,
		"created_at": doc.CreatedAt,
		"updated_at": doc.UpdatedAt,
		"data":       bson.M(doc.Data),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Document{}, ErrAlreadyExists
		}
		return Document{}, wrapMongoErr("create", err)
	}
	return doc, nil
}

// maxUpdateAttempts bounds the compare-and-swap loop for unversioned writes.
const maxUpdateAttempts = 3

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]any, expectedVersion int64) (Document, error) {
	if err := checkCollection(collection); err != nil {
		return Document{}, err
	}
	clean, err := normalize(fields)
	if err != nil {
		return Document{}, err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := s.Get(ctx, collection, id)
		if err != nil {
			return Document{}, err
		}
		if expectedVersion > 0 && current.Version != expectedVersion {
			return Document{}, ErrVersionConflict
		}

		next := current
		next.Data = merge(current.Data, clean)
		next.Version = current.Version + 1
		next.UpdatedAt = s.now()

		res, err := s.db.Collection(collection).UpdateOne(ctx,
			bson.M{"_id": id, "version": current.Version},
			bson.M{"$set": bson.M{
				"data":       bson.M(next.Data),
				"version":    next.Version,
				"updated_at": next.UpdatedAt,
			}})
		if err != nil {
			return Document{}, wrapMongoErr("update", err)
		}
		if res.MatchedCount == 1 {
			return next, nil
		}
		// lost the race against another writer
		if expectedVersion > 0 {
			return Document{}, ErrVersionConflict
		}
	}
	return Document{}, ErrVersionConflict
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapMongoErr("delete", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func wrapMongoErr(op string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	return fmt.Errorf("docstore %s: %w", op, err)
}
