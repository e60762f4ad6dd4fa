package orders

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Kemi-Oluwadahunsi/Roots-to-Bloom-sub001/internal/common"
)

const ordersCollection = "orders"

// MongoRecorder stores order records in a MongoDB collection with a unique
// index on session_id.
type MongoRecorder struct {
	coll *mongo.Collection
}

// NewMongoRecorder prepares the orders collection and its unique session
// index. Index creation is idempotent.
func NewMongoRecorder(ctx context.Context, db *mongo.Database) (*MongoRecorder, error) {
	coll := db.Collection(ordersCollection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &MongoRecorder{coll: coll}, nil
}

// Record upserts by session id. Redeliveries refresh the mutable fields and
// updated_at but keep the original created_at.
func (r *MongoRecorder) Record(ctx context.Context, rec Record) error {
	now := time.Now().UTC()
	filter := bson.M{"session_id": rec.SessionID}
	update := bson.M{
		"$set": bson.M{
			"payment_intent_id": rec.PaymentIntentID,
			"payment_status":    rec.PaymentStatus,
			"customer_email":    rec.CustomerEmail,
			"amount_total":      rec.AmountTotal,
			"currency":          rec.Currency,
			"user_id":           rec.UserID,
			"metadata":          rec.Metadata,
			"updated_at":        now,
		},
		"$setOnInsert": bson.M{
			"session_id": rec.SessionID,
			"created_at": now,
		},
	}
	_, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// BySessionID loads a single order record.
func (r *MongoRecorder) BySessionID(ctx context.Context, sessionID string) (Record, error) {
	var rec Record
	err := r.coll.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, common.NewNotFound("order not found", err)
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
