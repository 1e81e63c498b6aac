package repository

import (
	"context"
	"fmt"
	"time"

	"realtime_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationCollection mongo collection of 1 on 1 conversations
const ConversationCollection = "chats"

type mongoConversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a mongo ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &mongoConversationRepository{
		coll: db.Collection(ConversationCollection),
	}
}

// CreateOrGetConversation upsert, only the first call writes the users
func (r *mongoConversationRepository) CreateOrGetConversation(ctx context.Context, chatID, userA, userB string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	var conv domain.Conversation
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": chatID},
		bson.M{"$setOnInsert": bson.M{
			"users":        []string{userA, userB},
			"unread_count": bson.M{},
			"created_at":   now,
			"updated_at":   now,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&conv)
	if err != nil {
		return nil, fmt.Errorf("upsert conversation %s: %v: %w", chatID, err, domain.ErrPersistence)
	}
	if conv.UnreadCount == nil {
		conv.UnreadCount = map[string]int{}
	}
	return &conv, nil
}

func (r *mongoConversationRepository) FindByID(ctx context.Context, chatID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"_id": chatID}).Decode(&conv); err != nil {
		return nil, mapMongoErr("find conversation "+chatID, err)
	}
	if conv.UnreadCount == nil {
		conv.UnreadCount = map[string]int{}
	}
	return &conv, nil
}

func (r *mongoConversationRepository) UpdateConversation(ctx context.Context, chatID string, u domain.ConversationUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	update := bson.M{}

	if u.LatestMessage != "" {
		set["latest_message"] = u.LatestMessage
	}
	for userID, n := range u.Unread {
		set["unread_count."+userID] = n
	}
	if u.ResetUnread != "" {
		set["unread_count."+u.ResetUnread] = 0
	}
	if u.IncrementUnread != "" {
		update["$inc"] = bson.M{"unread_count." + u.IncrementUnread: 1}
	}
	update["$set"] = set

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": chatID}, update)
	if err != nil {
		return fmt.Errorf("update conversation %s: %v: %w", chatID, err, domain.ErrPersistence)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update conversation %s: %w", chatID, domain.ErrNotFound)
	}
	return nil
}
