package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

const chatStoreKey = "chats:store"

// RedisChatRepository persiste la coleccion completa como un JSON bajo una
// clave fija.
type RedisChatRepository struct {
	client *redis.Client
}

func NewRedisChatRepository(client *redis.Client) *RedisChatRepository {
	if client == nil {
		return nil
	}
	return &RedisChatRepository{client: client}
}

func (r *RedisChatRepository) Load(ctx context.Context) ([]domain.ChatSnapshot, error) {
	raw, err := r.client.Get(ctx, chatStoreKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chat store: %w", err)
	}

	var chats []domain.ChatSnapshot
	if err := json.Unmarshal(raw, &chats); err != nil {
		return nil, fmt.Errorf("decode chat store: %w", err)
	}
	return chats, nil
}

func (r *RedisChatRepository) Save(ctx context.Context, chats []domain.ChatSnapshot) error {
	data, err := json.Marshal(chats)
	if err != nil {
		return fmt.Errorf("encode chat store: %w", err)
	}
	if err := r.client.Set(ctx, chatStoreKey, data, 0).Err(); err != nil {
		return fmt.Errorf("save chat store: %w", err)
	}
	return nil
}
