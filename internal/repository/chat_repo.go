package repository

import (
	"context"
	"sync"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

// ChatRepository es el store durable: un unico slot fijo con la coleccion
// completa de chats serializada.
type ChatRepository interface {
	Load(ctx context.Context) ([]domain.ChatSnapshot, error)
	Save(ctx context.Context, chats []domain.ChatSnapshot) error
}

// MemoryChatRepository guarda el slot en memoria. Para tests y para el CLI.
type MemoryChatRepository struct {
	mu    sync.Mutex
	chats []domain.ChatSnapshot
	saves int
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{}
}

func (r *MemoryChatRepository) Load(ctx context.Context) ([]domain.ChatSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ChatSnapshot, len(r.chats))
	copy(out, r.chats)
	return out, nil
}

func (r *MemoryChatRepository) Save(ctx context.Context, chats []domain.ChatSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = make([]domain.ChatSnapshot, len(chats))
	copy(r.chats, chats)
	r.saves++
	return nil
}

// Saves devuelve cuantas veces se persistio el slot.
func (r *MemoryChatRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
