package repository

import (
	"context"
	"testing"
	"time"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

func TestMemoryChatRepository_RoundTrip(t *testing.T) {
	repo := NewMemoryChatRepository()
	ctx := context.Background()

	loaded, err := repo.Load(ctx)
	if err != nil || len(loaded) != 0 {
		t.Fatalf("expected empty slot, got %d err=%v", len(loaded), err)
	}

	tree := domain.NewMessageTree()
	_ = tree.AddMessage(domain.Message{ID: "m1", ChatID: "c1", Role: domain.RoleUser, Content: "hola"})
	_ = tree.AddMessage(domain.Message{ID: "m2", ChatID: "c1", ParentID: "m1", Role: domain.RoleAssistant, Content: "buenas", Done: true})
	chat := &domain.Chat{ID: "c1", Title: "saludo", Tree: tree, Created: time.Now().UTC(), Updated: time.Now().UTC()}

	if err := repo.Save(ctx, []domain.ChatSnapshot{chat.Snapshot()}); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err = repo.Load(ctx)
	if err != nil || len(loaded) != 1 {
		t.Fatalf("expected one chat, got %d err=%v", len(loaded), err)
	}

	restored := domain.ChatFromSnapshot(loaded[0])
	if restored.Title != "saludo" || restored.Tree.Len() != 2 {
		t.Fatalf("expected identical chat after round trip, got %+v", restored)
	}
	chain, err := restored.Tree.MessageChainTo("m2")
	if err != nil || len(chain) != 2 || chain[0].ID != "m1" {
		t.Fatalf("expected parent links preserved, got %+v err=%v", chain, err)
	}
}

func TestMemoryChatRepository_SaveReplacesSlot(t *testing.T) {
	repo := NewMemoryChatRepository()
	ctx := context.Background()

	_ = repo.Save(ctx, []domain.ChatSnapshot{{ID: "c1"}, {ID: "c2"}})
	_ = repo.Save(ctx, []domain.ChatSnapshot{{ID: "c3"}})

	loaded, _ := repo.Load(ctx)
	if len(loaded) != 1 || loaded[0].ID != "c3" {
		t.Fatalf("expected slot replaced wholesale, got %+v", loaded)
	}
	if repo.Saves() != 2 {
		t.Fatalf("expected two saves recorded, got %d", repo.Saves())
	}
}
