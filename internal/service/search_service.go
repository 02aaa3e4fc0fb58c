package service

import (
	"go.uber.org/zap"

	"github.com/danieldev0724/chat-with-gpt/internal/metrics"
	"github.com/danieldev0724/chat-with-gpt/internal/search"
)

// SearchService une el indice con el resolvedor de chats vivos.
type SearchService struct {
	logger *zap.Logger
	index  *search.Index
	source search.ChatSource
}

func NewSearchService(logger *zap.Logger, index *search.Index, source search.ChatSource) *SearchService {
	return &SearchService{logger: logger, index: index, source: source}
}

// Query resuelve una busqueda contra el indice y los chats vivos.
func (s *SearchService) Query(q string) []search.Result {
	metrics.SearchQueries.Inc()
	results := s.index.Query(q, s.source)
	s.logger.Debug("search", zap.String("query", q), zap.Int("results", len(results)))
	return results
}
