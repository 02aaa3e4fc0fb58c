package service

import (
	"sync"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

// Topic es el conjunto cerrado de canales de eventos con nombre. Los eventos
// por chat van aparte, suscritos por id.
type Topic string

const (
	// TopicMessages entrega lotes de mensajes recien finalizados.
	TopicMessages Topic = "messages"
	// TopicTitle entrega (chatID, titulo) cuando se genera un titulo.
	TopicTitle Topic = "title"
	// TopicUpdate marca estado sucio para la persistencia.
	TopicUpdate Topic = "update"
)

// Event es la unidad que viaja por el bus.
type Event struct {
	Topic    Topic
	ChatID   string
	Title    string
	Messages []domain.Message
}

// EventBus es un publish/subscribe tipado: suscripciones por chat id mas el
// conjunto cerrado de topicos. La entrega es no bloqueante; un suscriptor
// lento pierde eventos en vez de frenar el streaming.
type EventBus struct {
	mu     sync.Mutex
	chats  map[string][]chan Event
	topics map[Topic][]chan Event
}

func NewEventBus() *EventBus {
	return &EventBus{
		chats:  make(map[string][]chan Event),
		topics: make(map[Topic][]chan Event),
	}
}

// SubscribeChat entrega todo evento de mutacion de ese chat. La funcion
// devuelta cancela la suscripcion.
func (b *EventBus) SubscribeChat(chatID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.chats[chatID] = append(b.chats[chatID], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.chats[chatID]
		for i, sub := range subs {
			if sub == ch {
				b.chats[chatID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// SubscribeTopic entrega los eventos de un topico con nombre.
func (b *EventBus) SubscribeTopic(t Topic) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.topics[t] = append(b.topics[t], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.topics[t]
		for i, sub := range subs {
			if sub == ch {
				b.topics[t] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// EmitChat notifica una mutacion del chat a sus suscriptores.
func (b *EventBus) EmitChat(chatID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fanout(b.chats[chatID], Event{ChatID: chatID})
}

// EmitMessages publica un lote de mensajes finalizados.
func (b *EventBus) EmitMessages(chatID string, messages []domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fanout(b.topics[TopicMessages], Event{Topic: TopicMessages, ChatID: chatID, Messages: messages})
}

// EmitTitle publica el titulo recien generado de un chat.
func (b *EventBus) EmitTitle(chatID, title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fanout(b.topics[TopicTitle], Event{Topic: TopicTitle, ChatID: chatID, Title: title})
}

// EmitUpdate marca que hay estado pendiente de persistir.
func (b *EventBus) EmitUpdate(chatID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fanout(b.topics[TopicUpdate], Event{Topic: TopicUpdate, ChatID: chatID})
}

// fanout corre con el lock del bus tomado: cancel no puede cerrar un canal
// mientras hay un envio en curso.
func fanout(subs []chan Event, ev Event) {
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
