package repository

import (
	"context"
	"errors"
	"fmt"

	"realtime_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageCollection mongo collection of chat messages
const MessageCollection = "messages"

type mongoMessageRepository struct {
	coll  *mongo.Collection
	clock *monotonicClock
}

// NewMongoMessageRepository create a mongo MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &mongoMessageRepository{
		coll:  db.Collection(MessageCollection),
		clock: newMonotonicClock(),
	}
}

// EnsureMessageIndexes create the indexes used by history reads and the delivered flip
func EnsureMessageIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(MessageCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "receiver", Value: 1}, {Key: "delivered", Value: 1}}},
		{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "receiver", Value: 1}, {Key: "seen", Value: 1}}},
	})
	return err
}

func (r *mongoMessageRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	msg.ID = primitive.NewObjectID().Hex()
	msg.CreatedAt = r.clock.Next()
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("insert message: %v: %w", err, domain.ErrPersistence)
	}
	return nil
}

func (r *mongoMessageRepository) FindMessageByID(ctx context.Context, messageID string) (*domain.Message, error) {
	var msg domain.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg); err != nil {
		return nil, mapMongoErr("find message "+messageID, err)
	}
	return &msg, nil
}

func (r *mongoMessageRepository) FindMessagesByConversation(ctx context.Context, chatID string, limit int64) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.coll.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %v: %w", err, domain.ErrPersistence)
	}
	defer cur.Close(ctx)

	messages := []domain.Message{}
	if err := cur.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %v: %w", err, domain.ErrPersistence)
	}
	return messages, nil
}

func (r *mongoMessageRepository) UpdateMessageFlags(ctx context.Context, messageID string, f domain.MessageFlags) (*domain.Message, error) {
	set := bson.M{}
	if f.Delivered {
		set["delivered"] = true
	}
	if f.Seen {
		// 已讀一定已送達
		set["seen"] = true
		set["delivered"] = true
	}
	if len(set) == 0 {
		return r.FindMessageByID(ctx, messageID)
	}

	var msg domain.Message
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": messageID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&msg)
	if err != nil {
		return nil, mapMongoErr("update message "+messageID, err)
	}
	return &msg, nil
}

func (r *mongoMessageRepository) MarkDeliveredForRecipient(ctx context.Context, chatID, receiver string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"chat_id": chatID, "receiver": receiver, "delivered": false},
		bson.M{"$set": bson.M{"delivered": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark delivered: %v: %w", err, domain.ErrPersistence)
	}
	return res.ModifiedCount, nil
}

func (r *mongoMessageRepository) CountUnseen(ctx context.Context, chatID, receiver string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"chat_id": chatID, "receiver": receiver, "seen": false})
	if err != nil {
		return 0, fmt.Errorf("count unseen: %v: %w", err, domain.ErrPersistence)
	}
	return int(n), nil
}

// mapMongoErr ErrNoDocuments -> ErrNotFound, everything else -> ErrPersistence
func mapMongoErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrPersistence)
}
