package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB names for the alert event archive
const (
	MongoDBName               = "crypto_monitor"
	MongoAlertEventCollection = "alert_events"
)

// AlertArchive persists fired alert events to MongoDB. It implements
// AlertSink so the evaluator can dispatch to it directly.
type AlertArchive struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewAlertArchive connects to MongoDB and returns an archive backed by the
// alert_events collection
func NewAlertArchive(uri string) (*AlertArchive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Println("Alert archive connected to MongoDB")
	return &AlertArchive{
		client:     client,
		collection: client.Database(MongoDBName).Collection(MongoAlertEventCollection),
	}, nil
}

// Notify archives a fired alert event. Archive failures are logged, never
// propagated: losing one archive write must not affect the tick.
func (a *AlertArchive) Notify(event *models.AlertEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := a.collection.InsertOne(ctx, event); err != nil {
		log.Printf("Failed to archive alert event for asset %d: %v", event.AssetID, err)
	}
}

// RecentEvents returns the most recent archived events for an asset,
// newest first
func (a *AlertArchive) RecentEvents(ctx context.Context, assetID uint, limit int64) ([]models.AlertEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "fired_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := a.collection.Find(ctx, bson.M{"asset_id": assetID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]models.AlertEvent, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode alert events: %w", err)
	}
	return events, nil
}

// Close disconnects from MongoDB
func (a *AlertArchive) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}
