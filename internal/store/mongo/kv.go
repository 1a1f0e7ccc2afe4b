package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"carva/internal/store"
)

const (
	tracerName        = "carva/store/mongo"
	collectionName    = "kv"
	defaultMaxRetries = 16
)

// document is the stored shape of one key. Version guards optimistic updates.
type document struct {
	Key     string `bson:"_id"`
	Value   string `bson:"value"`
	Version int64  `bson:"version"`
}

// KVStore keeps each collection as one MongoDB document.
type KVStore struct {
	coll       *mongo.Collection
	logger     *slog.Logger
	maxRetries int
}

// NewKVStore creates a MongoDB-backed store.KV in the given database.
func NewKVStore(client *mongo.Client, database string, logger *slog.Logger) *KVStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &KVStore{
		coll:       client.Database(database).Collection(collectionName),
		logger:     logger,
		maxRetries: defaultMaxRetries,
	}
}

var _ store.KV = (*KVStore)(nil)

// Get returns the value for key, or nil if it is absent.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := startSpan(ctx, "MongoKVGet", key)
	defer span.End()

	doc, err := s.find(ctx, key)
	if err != nil {
		fail(span, err, "Failed to read key")
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return []byte(doc.Value), nil
}

// Put replaces the value for key.
func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	ctx, span := startSpan(ctx, "MongoKVPut", key)
	defer span.End()

	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": string(value)}, "$inc": bson.M{"version": 1}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		fail(span, err, "Failed to write key")
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Update applies fn with optimistic concurrency on the version field.
func (s *KVStore) Update(ctx context.Context, key string, fn store.UpdateFunc) error {
	ctx, span := startSpan(ctx, "MongoKVUpdate", key)
	defer span.End()

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		doc, err := s.find(ctx, key)
		if err != nil {
			fail(span, err, "Failed to read key")
			return err
		}

		var current []byte
		if doc != nil {
			current = []byte(doc.Value)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		applied, err := s.apply(ctx, key, doc, next)
		if err != nil {
			fail(span, err, "Failed to apply update")
			return err
		}
		if applied {
			span.SetAttributes(attribute.Int("attempts", attempt+1))
			return nil
		}
	}

	err := fmt.Errorf("update %s: %w", key, store.ErrConflict)
	fail(span, err, "Too many conflicting writers")
	return err
}

// Delete removes key.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	ctx, span := startSpan(ctx, "MongoKVDelete", key)
	defer span.End()

	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		fail(span, err, "Failed to delete key")
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// SetNX inserts key only if it is absent.
func (s *KVStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	ctx, span := startSpan(ctx, "MongoKVSetNX", key)
	defer span.End()

	_, err := s.coll.InsertOne(ctx, document{Key: key, Value: string(value), Version: 1})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		fail(span, err, "Failed to insert key")
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return true, nil
}

// Subscribe opens a change stream on the kv collection. Change streams need
// a replica set.
func (s *KVStore) Subscribe(ctx context.Context) (<-chan string, error) {
	_, span := startSpan(ctx, "MongoKVWatch", "*")
	defer span.End()

	cs, err := s.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		fail(span, err, "Failed to open change stream")
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer cs.Close(context.Background())
		for cs.Next(ctx) {
			var ev struct {
				DocumentKey struct {
					ID string `bson:"_id"`
				} `bson:"documentKey"`
			}
			if err := cs.Decode(&ev); err != nil {
				s.logger.Warn("decode change event", "error", err)
				continue
			}
			select {
			case out <- ev.DocumentKey.ID:
			default:
			}
		}
		if err := cs.Err(); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("change stream closed", "error", err)
		}
	}()
	return out, nil
}

// Close is a no-op; the client is owned by the caller.
func (s *KVStore) Close() error {
	return nil
}

func (s *KVStore) find(ctx context.Context, key string) (*document, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", key, err)
	}
	return &doc, nil
}

// apply writes next if the document is still at the version that was read.
// It reports false when another writer got there first.
func (s *KVStore) apply(ctx context.Context, key string, prev *document, next []byte) (bool, error) {
	switch {
	case prev == nil && next == nil:
		return true, nil
	case prev == nil:
		_, err := s.coll.InsertOne(ctx, document{Key: key, Value: string(next), Version: 1})
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return err == nil, err
	case next == nil:
		res, err := s.coll.DeleteOne(ctx, bson.M{"_id": key, "version": prev.Version})
		if err != nil {
			return false, err
		}
		return res.DeletedCount == 1, nil
	default:
		res, err := s.coll.UpdateOne(ctx,
			bson.M{"_id": key, "version": prev.Version},
			bson.M{"$set": bson.M{"value": string(next), "version": prev.Version + 1}},
		)
		if err != nil {
			return false, err
		}
		return res.MatchedCount == 1, nil
	}
}

func startSpan(ctx context.Context, name, key string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	span.SetAttributes(attribute.String("key", key))
	return ctx, span
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}
