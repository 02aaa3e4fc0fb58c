package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
	"github.com/danieldev0724/chat-with-gpt/internal/llm"
	"github.com/danieldev0724/chat-with-gpt/internal/metrics"
	"github.com/danieldev0724/chat-with-gpt/internal/replication"
	"github.com/danieldev0724/chat-with-gpt/internal/repository"
	"github.com/danieldev0724/chat-with-gpt/internal/search"
)

var (
	ErrChatNotFound = errors.New("chat not found")
	ErrEmptyMessage = errors.New("empty message content")
)

const (
	defaultSaveInterval  = 100 * time.Millisecond
	defaultIndexDebounce = 500 * time.Millisecond
)

// Submission es un mensaje de usuario entrante. Sin ParentID el mensaje se
// cuelga de la raiz efectiva del chat.
type Submission struct {
	ChatID   string
	ParentID string
	Content  string
	Params   llm.RequestParams
}

// ChatService es el coordinador central: posee el mapa de chats, orquesta
// envios y regeneraciones, agenda la persistencia y sincroniza replicas.
type ChatService struct {
	logger  *zap.Logger
	repo    repository.ChatRepository
	channel replication.Channel
	client  llm.CompletionClient
	titles  llm.TitleGenerator
	bus     *EventBus
	index   *search.Index

	saveInterval  time.Duration
	indexDebounce time.Duration

	mu    sync.RWMutex
	chats map[string]*domain.Chat

	loaded atomic.Bool
	dirty  atomic.Bool

	pendingMu    sync.Mutex
	pendingIndex map[string]struct{}
	indexTimer   *time.Timer
}

func NewChatService(
	logger *zap.Logger,
	repo repository.ChatRepository,
	channel replication.Channel,
	client llm.CompletionClient,
	titles llm.TitleGenerator,
) *ChatService {
	return &ChatService{
		logger:        logger,
		repo:          repo,
		channel:       channel,
		client:        client,
		titles:        titles,
		bus:           NewEventBus(),
		index:         search.NewIndex(),
		saveInterval:  defaultSaveInterval,
		indexDebounce: defaultIndexDebounce,
		chats:         make(map[string]*domain.Chat),
		pendingIndex:  make(map[string]struct{}),
	}
}

// Bus expone la superficie de eventos para los consumidores (UI, SSE).
func (s *ChatService) Bus() *EventBus {
	return s.bus
}

// Index expone el indice de busqueda.
func (s *ChatService) Index() *search.Index {
	return s.index
}

// Start hace la carga inicial, se suscribe al canal de replicacion y arranca
// el loop de persistencia. Los goroutines viven hasta que ctx se cancela.
func (s *ChatService) Start(ctx context.Context) error {
	snapshots, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load chats: %w", err)
	}
	for _, snap := range snapshots {
		s.LoadChat(domain.ChatFromSnapshot(snap))
	}
	s.mu.RLock()
	for _, chat := range s.chats {
		s.index.Update(chat.Snapshot())
	}
	count := len(s.chats)
	s.mu.RUnlock()
	s.loaded.Store(true)
	s.logger.Info("chats loaded", zap.Int("count", count))

	envs, err := s.channel.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe replication: %w", err)
	}
	go s.persistLoop(ctx)
	go s.replicationLoop(ctx, envs)
	return nil
}

// LoadChat registra (o reemplaza) un chat en memoria. Upsert idempotente;
// no hace nada si el chat no tiene id.
func (s *ChatService) LoadChat(chat *domain.Chat) {
	if chat == nil || chat.ID == "" {
		return
	}
	if chat.Tree == nil {
		chat.Tree = domain.NewMessageTree()
	}
	s.mu.Lock()
	s.chats[chat.ID] = chat
	s.mu.Unlock()
}

// CreateChat crea un chat vacio, lo registra, lo indexa y lo anuncia.
func (s *ChatService) CreateChat(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	chat := &domain.Chat{
		ID:      uuid.NewString(),
		Tree:    domain.NewMessageTree(),
		Created: now,
		Updated: now,
	}

	s.mu.Lock()
	s.chats[chat.ID] = chat
	snap := chat.Snapshot()
	s.mu.Unlock()

	s.index.Update(snap)
	s.bus.EmitChat(chat.ID)
	s.markDirty(chat.ID)
	s.broadcast(ctx, chat.ID)
	metrics.ChatsCreated.Inc()
	s.logger.Info("chat created", zap.String("chat_id", chat.ID))
	return chat.ID, nil
}

// Get es un lookup puro, sin efectos.
func (s *ChatService) Get(id string) (*domain.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[id]
	return chat, ok
}

// Snapshot devuelve una copia consistente del chat, segura de leer fuera del
// lock del servicio.
func (s *ChatService) Snapshot(id string) (domain.ChatSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[id]
	if !ok {
		return domain.ChatSnapshot{}, false
	}
	return chat.Snapshot(), true
}

// RecentSnapshots devuelve hasta n chats por Updated descendente.
func (s *ChatService) RecentSnapshots(n int) []domain.ChatSnapshot {
	s.mu.RLock()
	all := make([]domain.ChatSnapshot, 0, len(s.chats))
	for _, chat := range s.chats {
		all = append(all, chat.Snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Updated.After(all[j].Updated) })
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// SendMessage inserta el mensaje del usuario y dispara el turno de
// respuesta contra la cadena raiz→mensaje.
func (s *ChatService) SendMessage(ctx context.Context, sub Submission) error {
	content := strings.TrimSpace(sub.Content)
	if content == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	chat, ok := s.chats[sub.ChatID]
	if !ok {
		s.mu.Unlock()
		return ErrChatNotFound
	}

	parentID := sub.ParentID
	if parentID == "" {
		if first, ok := chat.Tree.First(); ok {
			parentID = first.ID
		}
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		ParentID:  parentID,
		Role:      domain.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Done:      true,
	}
	if err := chat.Tree.AddMessage(msg); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("add user message: %w", err)
	}
	chat.Touch()
	chain, err := chat.Tree.MessageChainTo(msg.ID)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("message chain: %w", err)
	}

	metrics.MessagesSent.Inc()
	s.bus.EmitChat(chat.ID)
	s.markDirty(chat.ID)
	s.broadcast(ctx, chat.ID)

	// El turno sobrevive al request que lo disparo.
	go s.replyTurn(context.WithoutCancel(ctx), chat.ID, msg.ID, chain, sub.Params)
	return nil
}

// Regenerate pide otra respuesta sobre el punto de rama de un mensaje
// existente. La nueva respuesta queda como rama hermana.
func (s *ChatService) Regenerate(ctx context.Context, chatID, messageID string, params llm.RequestParams) error {
	s.mu.RLock()
	chat, ok := s.chats[chatID]
	if !ok {
		s.mu.RUnlock()
		return ErrChatNotFound
	}
	msg, ok := chat.Tree.Get(messageID)
	if !ok {
		s.mu.RUnlock()
		return domain.ErrMessageNotFound
	}
	var chain []domain.Message
	if msg.ParentID != "" {
		var err error
		chain, err = chat.Tree.MessageChainTo(msg.ParentID)
		if err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("message chain: %w", err)
		}
	}
	s.mu.RUnlock()

	go s.replyTurn(context.WithoutCancel(ctx), chatID, msg.ParentID, chain, params)
	return nil
}

// ApplyRemote aplica un snapshot recibido de otra replica. Politica
// last-applied-wins: pisa la copia local incondicionalmente, aunque el
// snapshot entrante sea causalmente mas viejo.
func (s *ChatService) ApplyRemote(env replication.Envelope) {
	if env.Type != replication.EnvelopeChatUpdate || env.Data.ID == "" {
		return
	}
	chat := domain.ChatFromSnapshot(env.Data)

	s.mu.Lock()
	s.chats[chat.ID] = chat
	s.mu.Unlock()

	metrics.BroadcastsReceived.Inc()
	s.bus.EmitChat(chat.ID)
	s.markDirty(chat.ID)
}

func (s *ChatService) replicationLoop(ctx context.Context, envs <-chan replication.Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-envs:
			if !ok {
				return
			}
			s.ApplyRemote(env)
		}
	}
}

// persistLoop despierta cada saveInterval y, con la carga inicial completa y
// el flag sucio levantado, vuelca el store entero. Un flush fallido no corta
// el loop: se reintenta en el proximo tick.
func (s *ChatService) persistLoop(ctx context.Context) {
	ticker := time.NewTicker(s.saveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.loaded.Load() || !s.dirty.Swap(false) {
				continue
			}
			if err := s.flush(ctx); err != nil {
				s.dirty.Store(true)
				metrics.StoreFlushes.WithLabelValues("error").Inc()
				s.logger.Error("flush failed", zap.Error(err))
				continue
			}
			metrics.StoreFlushes.WithLabelValues("ok").Inc()
		}
	}
}

func (s *ChatService) flush(ctx context.Context) error {
	s.mu.RLock()
	snapshots := make([]domain.ChatSnapshot, 0, len(s.chats))
	for _, chat := range s.chats {
		snapshots = append(snapshots, chat.Snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Created.Before(snapshots[j].Created) })
	return s.repo.Save(ctx, snapshots)
}

func (s *ChatService) markDirty(chatID string) {
	s.dirty.Store(true)
	s.bus.EmitUpdate(chatID)
}

func (s *ChatService) broadcast(ctx context.Context, chatID string) {
	s.mu.RLock()
	chat, ok := s.chats[chatID]
	var snap domain.ChatSnapshot
	if ok {
		snap = chat.Snapshot()
	}
	s.mu.RUnlock()
	if !ok {
		return
	}

	env := replication.Envelope{Type: replication.EnvelopeChatUpdate, Data: snap}
	if err := s.channel.Publish(ctx, env); err != nil {
		s.logger.Warn("broadcast failed", zap.String("chat_id", chatID), zap.Error(err))
		return
	}
	metrics.BroadcastsPublished.Inc()
}

// scheduleIndexRefresh agenda una reconstruccion debounced del documento del
// chat. Cada llamada reinicia el timer.
func (s *ChatService) scheduleIndexRefresh(chatID string) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pendingIndex[chatID] = struct{}{}
	if s.indexTimer != nil {
		s.indexTimer.Stop()
	}
	s.indexTimer = time.AfterFunc(s.indexDebounce, s.refreshIndex)
}

func (s *ChatService) refreshIndex() {
	s.pendingMu.Lock()
	pending := s.pendingIndex
	s.pendingIndex = make(map[string]struct{})
	s.pendingMu.Unlock()

	for id := range pending {
		if snap, ok := s.Snapshot(id); ok {
			s.index.Update(snap)
		}
	}
}
