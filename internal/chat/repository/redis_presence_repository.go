package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"realtime_chat_service/internal/chat/domain"

	"github.com/go-redis/redis/v8"
)

const (
	// PresenceHashKey hash userID -> number of nodes holding a live connection
	PresenceHashKey = "chat:online"
	// PresenceChannel pub/sub channel of cluster wide presence transitions
	PresenceChannel = "chat:presence"
)

// PresenceChange message published on PresenceChannel
type PresenceChange struct {
	UserID string        `json:"userId"`
	Status domain.Action `json:"status"`
}

// RedisPresence mirror node local presence into redis for the roster service
type RedisPresence struct {
	client *redis.Client
}

// NewRedisPresence create RedisPresence
func NewRedisPresence(client *redis.Client) *RedisPresence {
	return &RedisPresence{client: client}
}

// Online user got its first connection on this node
func (r *RedisPresence) Online(ctx context.Context, userID string) error {
	n, err := r.client.HIncrBy(ctx, PresenceHashKey, userID, 1).Result()
	if err != nil {
		return fmt.Errorf("presence online %s: %w", userID, err)
	}
	// 其他節點已發布過
	if n > 1 {
		return nil
	}
	return r.publish(ctx, PresenceChange{UserID: userID, Status: domain.UserOnline})
}

// Offline user lost its last connection on this node
func (r *RedisPresence) Offline(ctx context.Context, userID string) error {
	n, err := r.client.HIncrBy(ctx, PresenceHashKey, userID, -1).Result()
	if err != nil {
		return fmt.Errorf("presence offline %s: %w", userID, err)
	}
	// 其他節點仍有連線
	if n > 0 {
		return nil
	}
	if err := r.client.HDel(ctx, PresenceHashKey, userID).Err(); err != nil {
		return fmt.Errorf("presence offline %s: %w", userID, err)
	}
	return r.publish(ctx, PresenceChange{UserID: userID, Status: domain.UserOffline})
}

// IsOnline cluster wide presence of userID
func (r *RedisPresence) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.HGet(ctx, PresenceHashKey, userID).Int64()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("presence get %s: %w", userID, err)
	}
	return n > 0, nil
}

// publish 將 message 序列化後，發布到 PresenceChannel
func (r *RedisPresence) publish(ctx context.Context, change PresenceChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, PresenceChannel, data).Err()
}
