package replication

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const chatEventsChannel = "chats:events"

// RedisChannel implementa Channel sobre redis pub/sub. Redis entrega los
// mensajes publicados tambien a la propia conexion, asi que el suscriptor
// filtra los sobres con su mismo origin.
type RedisChannel struct {
	client *redis.Client
	origin string
	logger *zap.Logger
}

func NewRedisChannel(client *redis.Client, origin string, logger *zap.Logger) *RedisChannel {
	return &RedisChannel{client: client, origin: origin, logger: logger}
}

func (c *RedisChannel) Publish(ctx context.Context, env Envelope) error {
	env.Origin = c.origin
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, chatEventsChannel, data).Err()
}

func (c *RedisChannel) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	pubsub := c.client.Subscribe(ctx, chatEventsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, err
	}

	out := make(chan Envelope, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					c.logger.Warn("malformed replication envelope", zap.Error(err))
					continue
				}
				if env.Type != EnvelopeChatUpdate || env.Origin == c.origin {
					continue
				}
				select {
				case out <- env:
				default:
					// Replica saturada: se pierde un snapshot, el proximo
					// broadcast del mismo chat lo repone.
					c.logger.Warn("replication envelope dropped", zap.String("chat_id", env.Data.ID))
				}
			}
		}
	}()
	return out, nil
}

func (c *RedisChannel) Close() error {
	return c.client.Close()
}
