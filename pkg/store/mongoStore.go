package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"

	"github.com/otodash/erp-sync/pkg/notify"
)

// MongoStore persists outbox events in a single collection, indexed by
// (tenant_id, entity_id) and (status, next_retry_at).
type MongoStore struct {
	client     *mongo.Client
	database   string
	collection string
	hub        *notify.Hub
}

func NewMongoStore(client *mongo.Client, database, collection string) *MongoStore {
	return &MongoStore{
		client:     client,
		database:   database,
		collection: collection,
		hub:        notify.NewHub(),
	}
}

func (m *MongoStore) coll() *mongo.Collection {
	return m.client.Database(m.database).Collection(m.collection)
}

func (m *MongoStore) Enqueue(ctx context.Context, tenantID, entityID string, eventType EventType, payload any) (*OutboxEvent, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Enqueue")
	defer span.End()

	event, err := NewEvent(tenantID, entityID, eventType, payload, time.Now())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if _, err := m.coll().InsertOne(ctx, event); err != nil {
		span.RecordError(err)
		return nil, err
	}

	m.hub.Notify()
	return event, nil
}

func (m *MongoStore) ListDue(ctx context.Context, now time.Time) ([]OutboxEvent, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "ListDue")
	defer span.End()

	startTime := time.Now()

	filter := bson.M{
		"status":        bson.M{"$ne": StatusSent},
		"next_retry_at": bson.M{"$lte": now},
	}
	cursor, err := m.coll().Find(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	events, err := decodeEvents(ctx, cursor)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	addDBStatsToSpan(span, "mongodb", "ListDue", len(events), time.Since(startTime))
	return events, nil
}

func (m *MongoStore) ListByEntity(ctx context.Context, tenantID, entityID string) ([]OutboxEvent, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "ListByEntity")
	defer span.End()

	filter := bson.M{"tenant_id": tenantID, "entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.coll().Find(ctx, filter, opts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	events, err := decodeEvents(ctx, cursor)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return events, nil
}

func (m *MongoStore) MarkSent(ctx context.Context, eventID string) error {
	filter := bson.M{"id": eventID, "status": bson.M{"$ne": StatusSent}}
	update := bson.M{
		"$set": bson.M{
			"status":          StatusSent,
			"last_attempt_at": time.Now(),
			"last_error":      "",
		},
	}
	if _, err := m.coll().UpdateOne(ctx, filter, update); err != nil {
		return err
	}
	m.hub.Notify()
	return nil
}

func (m *MongoStore) MarkFailed(ctx context.Context, eventID string, cause error, delay time.Duration) error {
	now := time.Now()
	filter := bson.M{"id": eventID, "status": bson.M{"$ne": StatusSent}}
	update := bson.M{
		"$set": bson.M{
			"status":          StatusFailed,
			"last_error":      cause.Error(),
			"last_attempt_at": now,
			"next_retry_at":   now.Add(delay),
		},
		"$inc": bson.M{"attempts": 1},
	}
	if _, err := m.coll().UpdateOne(ctx, filter, update); err != nil {
		return err
	}
	m.hub.Notify()
	return nil
}

func (m *MongoStore) RetryNow(ctx context.Context, tenantID, entityID string) error {
	filter := bson.M{
		"tenant_id": tenantID,
		"entity_id": entityID,
		"status":    bson.M{"$ne": StatusSent},
	}
	update := bson.M{
		"$set": bson.M{
			"status":        StatusPending,
			"next_retry_at": time.Now(),
		},
	}
	if _, err := m.coll().UpdateMany(ctx, filter, update); err != nil {
		return err
	}
	m.hub.Notify()
	return nil
}

func (m *MongoStore) Changes() *notify.Hub {
	return m.hub
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func decodeEvents(ctx context.Context, cursor *mongo.Cursor) ([]OutboxEvent, error) {
	var events []OutboxEvent
	for cursor.Next(ctx) {
		var event OutboxEvent
		if err := cursor.Decode(&event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, cursor.Err()
}
