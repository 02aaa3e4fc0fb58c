package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
	"github.com/danieldev0724/chat-with-gpt/internal/llm"
	"github.com/danieldev0724/chat-with-gpt/internal/service"
)

// ChatHandler mantiene dependencias para los endpoints de chats.
type ChatHandler struct {
	logger *zap.Logger
	chats  *service.ChatService
}

func NewChatHandler(logger *zap.Logger, chats *service.ChatService) *ChatHandler {
	return &ChatHandler{logger: logger, chats: chats}
}

func requestParams(c *gin.Context, model string, temperature float64) llm.RequestParams {
	return llm.RequestParams{
		APIKey:      c.GetHeader("X-API-Key"),
		Model:       model,
		Temperature: temperature,
	}
}

// CreateChat maneja POST /chats.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	id, err := h.chats.CreateChat(c.Request.Context())
	if err != nil {
		h.logger.Error("create chat failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"chat_id": id})
}

// GetChat maneja GET /chats/:id.
func (h *ChatHandler) GetChat(c *gin.Context) {
	snap, ok := h.chats.Snapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": snap})
}

// PostMessage maneja POST /chats/:id/messages. El turno de respuesta corre
// en background; el endpoint responde apenas el mensaje quedo insertado.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Content     string  `json:"content" binding:"required"`
		ParentID    string  `json:"parent_id"`
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sub := service.Submission{
		ChatID:   c.Param("id"),
		ParentID: req.ParentID,
		Content:  req.Content,
		Params:   requestParams(c, req.Model, req.Temperature),
	}
	err := h.chats.SendMessage(c.Request.Context(), sub)
	switch {
	case errors.Is(err, service.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
	case errors.Is(err, service.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message content"})
	case errors.Is(err, domain.ErrParentNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown parent message"})
	case err != nil:
		h.logger.Error("send message failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send message"})
	default:
		c.JSON(http.StatusAccepted, gin.H{"chat_id": sub.ChatID})
	}
}

// Regenerate maneja POST /chats/:id/regenerate.
func (h *ChatHandler) Regenerate(c *gin.Context) {
	var req struct {
		MessageID   string  `json:"message_id" binding:"required"`
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid regenerate request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.chats.Regenerate(c.Request.Context(), c.Param("id"), req.MessageID, requestParams(c, req.Model, req.Temperature))
	switch {
	case errors.Is(err, service.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
	case errors.Is(err, domain.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case err != nil:
		h.logger.Error("regenerate failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not regenerate"})
	default:
		c.JSON(http.StatusAccepted, gin.H{"chat_id": c.Param("id")})
	}
}

// Events maneja GET /chats/:id/events: un puente SSE sobre el bus. Cada
// mutacion del chat emite el snapshot completo.
func (h *ChatHandler) Events(c *gin.Context) {
	chatID := c.Param("id")
	if _, ok := h.chats.Get(chatID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	events, cancel := h.chats.Bus().SubscribeChat(chatID)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case _, ok := <-events:
			if !ok {
				return false
			}
			snap, found := h.chats.Snapshot(chatID)
			if !found {
				return false
			}
			c.SSEvent("chat", snap)
			return true
		}
	})
}
