package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const mongoCollection = "documents"

type mongoDocument struct {
	Path   string         `bson:"_id"`
	Parent string         `bson:"parent"`
	DocID  string         `bson:"docId"`
	Data   map[string]any `bson:"data"`
}

// MongoStore keeps every document in one collection keyed by its full path.
// Watches need change streams, so the server has to run as a replica set.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	sugar  *zap.SugaredLogger
}

func NewMongo(ctx context.Context, sugar *zap.SugaredLogger, uri string, database string) (*MongoStore, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(database).Collection(mongoCollection)

	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "parent", Value: 1}, {Key: "docId", Value: 1}},
		Options: options.Index().SetName("byParent_docId"),
	})
	if err != nil {
		sugar.Warnf("Couldn't create mongodb index: %v", err)
	}

	return &MongoStore{client: client, coll: coll, sugar: sugar}, nil
}

func (s *MongoStore) Get(ctx context.Context, path string) (Document, error) {
	path = strings.Trim(path, "/")

	var doc mongoDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": path}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	} else if err != nil {
		return Document{}, err
	}

	return Document{ID: doc.DocID, Data: normalize(doc.Data)}, nil
}

func (s *MongoStore) Set(ctx context.Context, path string, data map[string]any) error {
	path = strings.Trim(path, "/")

	doc := mongoDocument{
		Path:   path,
		Parent: Parent(path),
		DocID:  ID(path),
		Data:   data,
	}

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": path}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) Update(ctx context.Context, path string, fields map[string]any) error {
	path = strings.Trim(path, "/")
	if len(fields) == 0 {
		return nil
	}

	set := bson.M{}
	for k, v := range fields {
		set["data."+k] = v
	}

	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": path}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, path string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": strings.Trim(path, "/")})
	return err
}

func (s *MongoStore) List(ctx context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	filter := bson.M{"parent": strings.Trim(q.Path, "/")}
	if len(q.IDs) > 0 {
		filter["docId"] = bson.M{"$in": q.IDs}
	}

	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "docId", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var found []mongoDocument
	if err := cursor.All(ctx, &found); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(found))
	for _, doc := range found {
		docs = append(docs, Document{ID: doc.DocID, Data: normalize(doc.Data)})
	}
	return docs, nil
}

func (s *MongoStore) Watch(q Query, fn Listener) Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())

	if err := validateQuery(q); err != nil {
		go fn(nil, err)
		return Unsubscribe(cancel)
	}

	go s.listen(ctx, q, fn)

	return Unsubscribe(cancel)
}

func (s *MongoStore) listen(ctx context.Context, q Query, fn Listener) {
	retry := newListenerBackoff(ctx)

	for {
		err := s.stream(ctx, q, fn, retry)
		if ctx.Err() != nil {
			return
		}

		s.sugar.Warnf("Change stream on [%s] broke: %v", q.Path, err)
		fn(nil, err)

		wait := retry.NextBackOff()
		if wait == backoff.Stop {
			s.sugar.Errorf("Giving up on change stream for [%s]", q.Path)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (s *MongoStore) stream(ctx context.Context, q Query, fn Listener, retry backoff.BackOff) error {
	collection := strings.Trim(q.Path, "/")
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"documentKey._id": bson.M{"$regex": "^" + regexp.QuoteMeta(collection) + "/[^/]+$"},
		}}},
	}

	// the stream is opened before the first read so nothing written in
	// between goes unnoticed
	changes, err := s.coll.Watch(ctx, pipeline)
	if err != nil {
		return err
	}
	defer changes.Close(context.Background())

	docs, err := s.List(ctx, q)
	if err != nil {
		return err
	}
	fn(docs, nil)

	for changes.Next(ctx) {
		if len(q.IDs) > 0 && !changeTouches(changes.Current, q.IDs) {
			continue
		}

		docs, err := s.List(ctx, q)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		retry.Reset()
		fn(docs, nil)
	}

	if err := changes.Err(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func changeTouches(raw bson.Raw, ids []string) bool {
	key, err := raw.LookupErr("documentKey", "_id")
	if err != nil {
		return true
	}
	path, ok := key.StringValueOK()
	if !ok {
		return true
	}
	return containsID(ids, ID(path))
}

// normalize turns driver specific containers into plain maps and slices.
func normalize(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case bson.M:
		return normalize(val)
	case map[string]any:
		return normalize(val)
	case bson.A:
		items := make([]any, 0, len(val))
		for _, item := range val {
			items = append(items, normalizeValue(item))
		}
		return items
	case bson.D:
		return normalize(val.Map())
	default:
		return val
	}
}
