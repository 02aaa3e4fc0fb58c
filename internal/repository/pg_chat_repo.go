package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// PgChatRepository persiste el slot como una fila unica en chat_store.
//
//	CREATE TABLE IF NOT EXISTS chat_store (
//	    slot TEXT PRIMARY KEY,
//	    payload JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
type PgChatRepository struct {
	pool *pgxpool.Pool
	slot string
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool, slot: "chats"}
}

func (r *PgChatRepository) Load(ctx context.Context) ([]domain.ChatSnapshot, error) {
	const query = `SELECT payload FROM chat_store WHERE slot = $1`

	var raw []byte
	err := r.pool.QueryRow(ctx, query, r.slot).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (r *PgChatRepository) Save(ctx context.Context, chats []domain.ChatSnapshot) error {
	const query = `
		INSERT INTO chat_store (slot, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot) DO UPDATE SET payload = $2, updated_at = $3
	`

	data, err := json.Marshal(chats)
	if err != nil {
		return fmt.Errorf("encode chat store: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, r.slot, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("save chat store: %w", err)
	}
	return nil
}
