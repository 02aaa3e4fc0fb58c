package replication

import (
	"context"
	"testing"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

func TestLoopback_PublishDoesNotEcho(t *testing.T) {
	c := NewLoopbackChannel()
	ch, err := c.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	env := Envelope{Type: EnvelopeChatUpdate, Data: domain.ChatSnapshot{ID: "c1"}}
	if err := c.Publish(context.Background(), env); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-ch:
		t.Fatalf("publisher must not receive its own envelope, got %+v", got)
	default:
	}
	if published := c.Published(); len(published) != 1 || published[0].Data.ID != "c1" {
		t.Fatalf("expected envelope recorded, got %+v", published)
	}
}

func TestLoopback_InjectDeliversToAllSubscribers(t *testing.T) {
	c := NewLoopbackChannel()
	a, _ := c.Subscribe(context.Background())
	b, _ := c.Subscribe(context.Background())

	c.Inject(Envelope{Type: EnvelopeChatUpdate, Origin: "other", Data: domain.ChatSnapshot{ID: "c1"}})

	for _, ch := range []<-chan Envelope{a, b} {
		select {
		case env := <-ch:
			if env.Data.ID != "c1" || env.Origin != "other" {
				t.Fatalf("unexpected envelope %+v", env)
			}
		default:
			t.Fatalf("expected injected envelope delivered")
		}
	}
}

func TestLoopback_CloseClosesSubscribers(t *testing.T) {
	c := NewLoopbackChannel()
	ch, _ := c.Subscribe(context.Background())

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, open := <-ch; open {
		t.Fatalf("expected subscriber channel closed")
	}
	// Close repetido es inocuo.
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
