package repository

import (
	"context"
	"fmt"

	"github.com/osu/ShopiPing/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReminderLogCollection is the MongoDB collection holding reminder logs.
const ReminderLogCollection = "cart_logs"

type mongoReminderLogRepository struct {
	coll *mongo.Collection
}

func NewMongoReminderLogRepository(db *mongo.Database) ReminderLogRepository {
	return &mongoReminderLogRepository{coll: db.Collection(ReminderLogCollection)}
}

func (r *mongoReminderLogRepository) Record(ctx context.Context, log *models.ReminderLog) error {
	if _, err := r.coll.InsertOne(ctx, log); err != nil {
		return fmt.Errorf("insert reminder log: %w", err)
	}
	return nil
}

func (r *mongoReminderLogRepository) List(ctx context.Context, filter models.ReminderLogFilter) ([]models.ReminderLog, int64, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	query := bson.M{}
	if filter.CartID != "" {
		query["cartId"] = filter.CartID
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count reminder logs: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "sentAt", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find reminder logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := make([]models.ReminderLog, 0)
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, 0, fmt.Errorf("decode reminder logs: %w", err)
	}
	return logs, total, nil
}
