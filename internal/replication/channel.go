package replication

import (
	"context"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

// EnvelopeChatUpdate es el unico tipo de sobre que viaja entre replicas.
const EnvelopeChatUpdate = "chat-update"

// Envelope transporta un snapshot completo de chat entre replicas del mismo
// usuario. Best-effort: sin garantia de orden ni de entrega.
type Envelope struct {
	Type   string              `json:"type"`
	Origin string              `json:"origin"`
	Data   domain.ChatSnapshot `json:"data"`
}

// Channel es el tejido de broadcast entre replicas abiertas.
type Channel interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(ctx context.Context) (<-chan Envelope, error)
	Close() error
}
