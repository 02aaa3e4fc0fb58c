package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/danieldev0724/chat-with-gpt/internal/service"
)

// SearchHandler expone la busqueda de chats.
type SearchHandler struct {
	logger *zap.Logger
	search *service.SearchService
}

func NewSearchHandler(logger *zap.Logger, search *service.SearchService) *SearchHandler {
	return &SearchHandler{logger: logger, search: search}
}

// Search maneja GET /search?q=. Sin consulta devuelve los chats recientes.
func (h *SearchHandler) Search(c *gin.Context) {
	results := h.search.Query(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"results": results})
}
