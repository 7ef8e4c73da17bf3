package repository

import (
	"context"
	"fmt"
	"time"

	"tupilates/domain"

	"github.com/redis/go-redis/v9"
)

const conversationKeyPrefix = "chat:"

type conversationRedisRepository struct {
	client *redis.Client
}

func NewConversationRedisRepository(client *redis.Client) domain.ConversationRepository {
	return &conversationRedisRepository{client: client}
}

func (r *conversationRedisRepository) SaveConversation(ctx context.Context, session string, fields map[string]string, ttl time.Duration) error {
	key := conversationKeyPrefix + session

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
	}
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func (r *conversationRedisRepository) LoadConversation(ctx context.Context, session string) (map[string]string, error) {
	data, err := r.client.HGetAll(ctx, conversationKeyPrefix+session).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if len(data) == 0 {
		return nil, nil // not found
	}
	return data, nil
}

func (r *conversationRedisRepository) DeleteConversation(ctx context.Context, session string) error {
	if err := r.client.Del(ctx, conversationKeyPrefix+session).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}
