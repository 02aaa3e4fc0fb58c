package replication

import (
	"context"
	"sync"
)

// LoopbackChannel es una implementacion en proceso para tests y para el CLI,
// donde no hay otras replicas. Cumple el mismo contrato que RedisChannel:
// lo publicado no vuelve al publicador.
type LoopbackChannel struct {
	mu        sync.Mutex
	subs      []chan Envelope
	published []Envelope
	closed    bool
}

func NewLoopbackChannel() *LoopbackChannel {
	return &LoopbackChannel{}
}

func (c *LoopbackChannel) Publish(ctx context.Context, env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, env)
	return nil
}

func (c *LoopbackChannel) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	ch := make(chan Envelope, 64)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch, nil
}

// Inject entrega un sobre a los suscriptores como si viniera de otra replica.
func (c *LoopbackChannel) Inject(env Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- env:
		default:
		}
	}
}

// Published devuelve los sobres publicados hasta ahora.
func (c *LoopbackChannel) Published() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Envelope, len(c.published))
	copy(out, c.published)
	return out
}

func (c *LoopbackChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	return nil
}
