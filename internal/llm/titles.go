package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

const titleMaxLen = 100

// TitleGenerator produce un titulo corto para un chat, o "" si no puede.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, chat *domain.Chat, params RequestParams) (string, error)
}

// CompletionTitleGenerator genera titulos con una completion one-shot.
type CompletionTitleGenerator struct {
	client CompletionClient
	model  string
}

func NewCompletionTitleGenerator(client CompletionClient, model string) *CompletionTitleGenerator {
	return &CompletionTitleGenerator{client: client, model: model}
}

func (g *CompletionTitleGenerator) GenerateTitle(ctx context.Context, chat *domain.Chat, params RequestParams) (string, error) {
	first, ok := chat.Tree.First()
	if !ok {
		return "", nil
	}
	if g.model != "" {
		params.Model = g.model
	}

	prompt := fmt.Sprintf(
		"Write a title (no more than 6 words) for the following conversation. Reply with the title only.\n\n%s",
		first.Content,
	)
	raw, err := g.client.Generate(ctx, prompt, params)
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}
	return cleanTitle(raw), nil
}

// cleanTitle recorta comillas, saltos de linea y largo excesivo.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.Trim(title, `"'`)
	title = strings.TrimSuffix(title, ".")
	runes := []rune(title)
	if len(runes) > titleMaxLen {
		title = string(runes[:titleMaxLen])
	}
	return strings.TrimSpace(title)
}
