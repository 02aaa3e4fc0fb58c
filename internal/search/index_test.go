package search

import (
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

type mapSource struct {
	chats map[string]domain.ChatSnapshot
}

func (s *mapSource) Snapshot(id string) (domain.ChatSnapshot, bool) {
	c, ok := s.chats[id]
	return c, ok
}

func (s *mapSource) RecentSnapshots(n int) []domain.ChatSnapshot {
	all := make([]domain.ChatSnapshot, 0, len(s.chats))
	for _, c := range s.chats {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Updated.After(all[j].Updated) })
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func newSnapshot(id, title, firstMessage string, updated time.Time) domain.ChatSnapshot {
	tree := domain.NewMessageTree()
	if firstMessage != "" {
		_ = tree.AddMessage(domain.Message{
			ID:        id + "-m1",
			ChatID:    id,
			Role:      domain.RoleUser,
			Content:   firstMessage,
			Timestamp: updated,
		})
	}
	chat := &domain.Chat{ID: id, Title: title, Tree: tree, Created: updated, Updated: updated}
	return chat.Snapshot()
}

func TestQuery_EmptyReturnsRecent(t *testing.T) {
	base := time.Unix(0, 0).UTC()
	source := &mapSource{chats: map[string]domain.ChatSnapshot{}}
	idx := NewIndex()
	for _, stamp := range []int{5, 3, 8, 1} {
		id := fmt.Sprintf("c%d", stamp)
		snap := newSnapshot(id, "", "mensaje "+id, base.Add(time.Duration(stamp)*time.Hour))
		source.chats[id] = snap
		idx.Update(snap)
	}

	results := idx.Query("   ", source)
	want := []string{"c8", "c5", "c3", "c1"}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i, r := range results {
		if r.ChatID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], r.ChatID)
		}
	}
}

func TestQuery_EmptyCapsAtTen(t *testing.T) {
	source := &mapSource{chats: map[string]domain.ChatSnapshot{}}
	idx := NewIndex()
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("c%02d", i)
		snap := newSnapshot(id, "", "hola", time.Unix(int64(i), 0).UTC())
		source.chats[id] = snap
		idx.Update(snap)
	}
	if got := len(idx.Query("", source)); got != 10 {
		t.Fatalf("expected 10 results, got %d", got)
	}
}

func TestQuery_FuzzyToleratesTypo(t *testing.T) {
	snap := newSnapshot("c1", "Kubernetes deployment help", "how do I deploy", time.Now().UTC())
	source := &mapSource{chats: map[string]domain.ChatSnapshot{"c1": snap}}
	idx := NewIndex()
	idx.Update(snap)

	results := idx.Query("kubernetes", source)
	if len(results) != 1 || results[0].ChatID != "c1" {
		t.Fatalf("expected exact hit, got %+v", results)
	}
	// "kubernetes" tiene 10 letras: tolerancia 2 ediciones.
	results = idx.Query("kubernetis", source)
	if len(results) != 1 || results[0].ChatID != "c1" {
		t.Fatalf("expected fuzzy hit for typo, got %+v", results)
	}
}

func TestQuery_PrefixFallback(t *testing.T) {
	snap := newSnapshot("c1", "", "extraordinarily long first word", time.Now().UTC())
	source := &mapSource{chats: map[string]domain.ChatSnapshot{"c1": snap}}
	idx := NewIndex()
	idx.Update(snap)

	// "extra" esta a 9 ediciones de "extraordinarily": fuzzy no matchea,
	// el prefijo si.
	results := idx.Query("extra", source)
	if len(results) != 1 || results[0].ChatID != "c1" {
		t.Fatalf("expected prefix fallback hit, got %+v", results)
	}
}

func TestQuery_SkipsMissingChat(t *testing.T) {
	snap := newSnapshot("gone", "deleted chat", "contenido", time.Now().UTC())
	idx := NewIndex()
	idx.Update(snap)
	source := &mapSource{chats: map[string]domain.ChatSnapshot{}}

	if results := idx.Query("deleted", source); len(results) != 0 {
		t.Fatalf("expected index/store divergence skipped, got %+v", results)
	}
}

func TestBuildResult_TruncationAndFallbackTitle(t *testing.T) {
	long := strings.Repeat("x", 500)
	snap := newSnapshot("c1", "", long, time.Now().UTC())

	r, ok := buildResult(snap)
	if !ok {
		t.Fatalf("expected usable result")
	}
	if len([]rune(r.Description)) != descriptionLen+3 || !strings.HasSuffix(r.Description, "...") {
		t.Fatalf("expected %d-rune description with ellipsis, got %d", descriptionLen+3, len([]rune(r.Description)))
	}
	if len([]rune(r.Title)) != titleLen+3 {
		t.Fatalf("expected fallback title truncated to %d runes, got %d", titleLen+3, len([]rune(r.Title)))
	}
}

func TestBuildResult_DropsEmptyChat(t *testing.T) {
	snap := newSnapshot("c1", "", "", time.Now().UTC())
	if _, ok := buildResult(snap); ok {
		t.Fatalf("expected chat without title and description dropped")
	}
}

func TestUpdate_ReplacesDocument(t *testing.T) {
	snap := newSnapshot("c1", "primer titulo", "hola", time.Now().UTC())
	source := &mapSource{chats: map[string]domain.ChatSnapshot{"c1": snap}}
	idx := NewIndex()
	idx.Update(snap)

	snap.Title = "segundo titulo"
	source.chats["c1"] = snap
	idx.Update(snap)

	if idx.Len() != 1 {
		t.Fatalf("expected single document, got %d", idx.Len())
	}
	if results := idx.Query("segundo", source); len(results) != 1 {
		t.Fatalf("expected rebuilt document to match, got %+v", results)
	}
}
