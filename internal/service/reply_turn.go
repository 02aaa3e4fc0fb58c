package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
	"github.com/danieldev0724/chat-with-gpt/internal/llm"
	"github.com/danieldev0724/chat-with-gpt/internal/metrics"
)

// replyFailedMessage es el texto fijo que ve el usuario cuando el transporte
// falla antes de entregar contenido.
const replyFailedMessage = "Sorry, I could not generate a response. Please check your API key and try again."

// replyTurn maneja un turno de respuesta completo: crea el nodo de
// respuesta, proyecta los eventos del stream sobre ese nodo y lo deja
// siempre en un estado terminal (done o disculpa), nunca colgado en pending.
func (s *ChatService) replyTurn(ctx context.Context, chatID, parentID string, chain []domain.Message, params llm.RequestParams) {
	reply := domain.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		ParentID:  parentID,
		Role:      domain.RoleAssistant,
		Timestamp: time.Now().UTC(),
	}
	if err := s.insertMessage(chatID, reply); err != nil {
		s.logger.Error("insert reply node failed", zap.String("chat_id", chatID), zap.Error(err))
		return
	}
	s.bus.EmitChat(chatID)
	s.markDirty(chatID)
	s.broadcast(ctx, chatID)

	stream, err := s.client.Stream(ctx, chain, params)
	if err != nil {
		s.logger.Warn("completion request failed", zap.String("chat_id", chatID), zap.Error(err))
		s.failReply(ctx, chatID, reply.ID)
		return
	}

	var content string
	for ev := range stream.Events() {
		switch ev.Kind {
		case llm.EventData:
			// El stream entrega texto acumulado: se reemplaza entero.
			content = ev.Content
			s.applyReply(ctx, chatID, reply.ID, content, false)
			metrics.StreamEvents.Inc()
		case llm.EventError:
			if content == "" {
				s.logger.Warn("stream failed before any content", zap.String("chat_id", chatID), zap.Error(ev.Err))
				s.failReply(ctx, chatID, reply.ID)
				return
			}
			// Con contenido parcial el error se suprime: la salida parcial
			// queda como respuesta final.
			s.logger.Warn("stream failed after partial content, keeping partial output",
				zap.String("chat_id", chatID), zap.Error(ev.Err))
			s.finishReply(ctx, chatID, reply.ID, content, params)
			return
		case llm.EventDone:
			s.finishReply(ctx, chatID, reply.ID, content, params)
			return
		}
	}

	// Canal cerrado sin evento terminal: se trata como done.
	s.finishReply(ctx, chatID, reply.ID, content, params)
}

func (s *ChatService) insertMessage(chatID string, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return ErrChatNotFound
	}
	if err := chat.Tree.AddMessage(msg); err != nil {
		return err
	}
	chat.Touch()
	return nil
}

// applyReply vuelca el estado actual del stream sobre el nodo de respuesta y
// lo anuncia. Se ejecuta por cada evento data; cada evento dispara un
// broadcast completo, costo de amplificacion aceptado.
func (s *ChatService) applyReply(ctx context.Context, chatID, replyID, content string, done bool) {
	s.mu.Lock()
	chat, ok := s.chats[chatID]
	if ok {
		if err := chat.Tree.UpdateMessage(domain.Message{ID: replyID, Content: content, Done: done}); err != nil {
			// El nodo pudo haber sido pisado por un snapshot remoto.
			s.logger.Debug("reply node gone, dropping stream event",
				zap.String("chat_id", chatID), zap.String("message_id", replyID))
			s.mu.Unlock()
			return
		}
		chat.Touch()
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.bus.EmitChat(chatID)
	s.markDirty(chatID)
	s.broadcast(ctx, chatID)
}

// finishReply marca el turno como terminado, publica el lote de mensajes
// finalizados y agenda el refresco del indice y el titulo si falta.
func (s *ChatService) finishReply(ctx context.Context, chatID, replyID, content string, params llm.RequestParams) {
	s.applyReply(ctx, chatID, replyID, content, true)

	s.mu.RLock()
	var final domain.Message
	var ok bool
	if chat, found := s.chats[chatID]; found {
		final, ok = chat.Tree.Get(replyID)
	}
	s.mu.RUnlock()
	if ok {
		s.bus.EmitMessages(chatID, []domain.Message{final})
	}

	metrics.ReplyTurns.WithLabelValues("done").Inc()
	s.scheduleIndexRefresh(chatID)
	s.maybeGenerateTitle(ctx, chatID, params)
}

// failReply sustituye la respuesta por la disculpa fija y cierra el turno.
func (s *ChatService) failReply(ctx context.Context, chatID, replyID string) {
	s.applyReply(ctx, chatID, replyID, replyFailedMessage, true)
	metrics.ReplyTurns.WithLabelValues("failed").Inc()
}

// maybeGenerateTitle pide un titulo al colaborador si el chat no tiene uno.
func (s *ChatService) maybeGenerateTitle(ctx context.Context, chatID string, params llm.RequestParams) {
	if s.titles == nil {
		return
	}
	s.mu.RLock()
	chat, ok := s.chats[chatID]
	var snap domain.ChatSnapshot
	if ok && chat.Title == "" {
		snap = chat.Snapshot()
	}
	s.mu.RUnlock()
	if !ok || snap.ID == "" {
		return
	}

	title, err := s.titles.GenerateTitle(ctx, domain.ChatFromSnapshot(snap), params)
	if err != nil {
		s.logger.Warn("title generation failed", zap.String("chat_id", chatID), zap.Error(err))
		return
	}
	if title == "" {
		return
	}

	s.mu.Lock()
	if chat, ok := s.chats[chatID]; ok {
		chat.Title = title
		chat.Touch()
	}
	s.mu.Unlock()

	s.bus.EmitTitle(chatID, title)
	s.bus.EmitChat(chatID)
	s.markDirty(chatID)
	s.broadcast(ctx, chatID)
	s.scheduleIndexRefresh(chatID)
}
