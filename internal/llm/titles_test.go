package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

func titledChat(t *testing.T, firstMessage string) *domain.Chat {
	t.Helper()
	tree := domain.NewMessageTree()
	if firstMessage != "" {
		if err := tree.AddMessage(domain.Message{ID: "m1", ChatID: "c1", Role: domain.RoleUser, Content: firstMessage}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return &domain.Chat{ID: "c1", Tree: tree}
}

func TestGenerateTitle_UsesFirstMessage(t *testing.T) {
	client := &MockClient{Response: `"Plan de viaje a Roma."` + "\n"}
	gen := NewCompletionTitleGenerator(client, "modelo-titulos")

	title, err := gen.GenerateTitle(context.Background(), titledChat(t, "quiero planear un viaje"), RequestParams{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if title != "Plan de viaje a Roma" {
		t.Fatalf("expected cleaned title, got %q", title)
	}
	if client.LastParams().Model != "modelo-titulos" {
		t.Fatalf("expected title model override, got %q", client.LastParams().Model)
	}
}

func TestGenerateTitle_EmptyChat(t *testing.T) {
	gen := NewCompletionTitleGenerator(&MockClient{Response: "algo"}, "")
	title, err := gen.GenerateTitle(context.Background(), titledChat(t, ""), RequestParams{})
	if err != nil || title != "" {
		t.Fatalf("expected no title for empty chat, got %q err=%v", title, err)
	}
}

func TestCleanTitle_CapsLength(t *testing.T) {
	long := strings.Repeat("a", 150)
	if got := cleanTitle(long); len([]rune(got)) != titleMaxLen {
		t.Fatalf("expected %d runes, got %d", titleMaxLen, len([]rune(got)))
	}
}
