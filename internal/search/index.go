package search

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

const (
	maxResults     = 10
	descriptionLen = 400
	titleLen       = 100
	fuzzyTolerance = 0.2
)

// Result es un hit de busqueda ya resuelto contra el chat vivo.
type Result struct {
	ChatID      string `json:"chat_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ChatSource resuelve documentos indexados contra los chats vivos. El indice
// y el store pueden divergir transitoriamente; los ids sin chat se saltan.
type ChatSource interface {
	Snapshot(id string) (domain.ChatSnapshot, bool)
	RecentSnapshots(n int) []domain.ChatSnapshot
}

type document struct {
	words   []string
	updated int64
}

// Index mantiene un documento buscable por chat: titulo mas todo el texto de
// los mensajes. Cada Update reconstruye el documento completo; las llamadas
// llegan debounced, no por token.
type Index struct {
	mu   sync.RWMutex
	docs map[string]document
}

func NewIndex() *Index {
	return &Index{docs: make(map[string]document)}
}

// Update reemplaza (o inserta) el documento del chat.
func (i *Index) Update(snap domain.ChatSnapshot) {
	parts := []string{snap.Title}
	for _, m := range snap.Messages {
		parts = append(parts, m.Content)
	}
	text := strings.Join(parts, "\n\n")

	i.mu.Lock()
	i.docs[snap.ID] = document{
		words:   tokenize(text),
		updated: snap.Updated.UnixMilli(),
	}
	i.mu.Unlock()
}

// Len devuelve la cantidad de documentos indexados.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

// Query busca los chats que matchean el texto. Consulta vacia devuelve los
// chats mas recientes. Primero intenta fuzzy; si no hay ningun hit cae a
// busqueda por prefijo, asi un prefijo exacto nunca falla solo porque el
// scoring fuzzy lo descarto.
func (i *Index) Query(q string, source ChatSource) []Result {
	terms := tokenize(q)
	if len(terms) == 0 {
		return recentResults(source)
	}

	ids := i.match(terms, matchFuzzy)
	if len(ids) == 0 {
		ids = i.match(terms, matchPrefix)
	}

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		snap, ok := source.Snapshot(id)
		if !ok {
			continue
		}
		if r, ok := buildResult(snap); ok {
			results = append(results, r)
		}
		if len(results) == maxResults {
			break
		}
	}
	return results
}

type matchFunc func(term, word string) bool

// match devuelve los ids cuyos documentos matchean algun termino, ordenados
// por cantidad de terminos matcheados y luego por recencia.
func (i *Index) match(terms []string, fn matchFunc) []string {
	type scored struct {
		id      string
		score   int
		updated int64
	}

	i.mu.RLock()
	var hits []scored
	for id, doc := range i.docs {
		score := 0
		for _, term := range terms {
			if docMatches(doc.words, term, fn) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{id: id, score: score, updated: doc.updated})
		}
	}
	i.mu.RUnlock()

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].updated > hits[b].updated
	})

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.id)
	}
	return ids
}

func docMatches(words []string, term string, fn matchFunc) bool {
	for _, w := range words {
		if fn(term, w) {
			return true
		}
	}
	return false
}

// matchFuzzy acepta palabras dentro de la tolerancia de edicion (~0.2 del
// largo del termino, minimo 1).
func matchFuzzy(term, word string) bool {
	if term == word {
		return true
	}
	limit := int(math.Ceil(fuzzyTolerance * float64(len(term))))
	if limit < 1 {
		limit = 1
	}
	return levenshtein.ComputeDistance(term, word) <= limit
}

func matchPrefix(term, word string) bool {
	return strings.HasPrefix(word, term)
}

// recentResults devuelve hasta 10 chats por Updated descendente, sin pasar
// por el indice.
func recentResults(source ChatSource) []Result {
	var results []Result
	for _, snap := range source.RecentSnapshots(maxResults) {
		if r, ok := buildResult(snap); ok {
			results = append(results, r)
		}
	}
	return results
}

// buildResult arma titulo y descripcion desde el snapshot del chat. Sin
// titulo usable ni descripcion, el hit se descarta.
func buildResult(snap domain.ChatSnapshot) (Result, bool) {
	var description string
	if first, ok := firstMessage(snap); ok {
		description = truncate(first.Content, descriptionLen)
	}
	title := snap.Title
	if title == "" {
		title = truncate(description, titleLen)
	}
	if title == "" && description == "" {
		return Result{}, false
	}
	return Result{ChatID: snap.ID, Title: title, Description: description}, true
}

// firstMessage es la raiz efectiva: el primer mensaje sin padre.
func firstMessage(snap domain.ChatSnapshot) (domain.Message, bool) {
	for _, m := range snap.Messages {
		if m.ParentID == "" {
			return m, true
		}
	}
	return domain.Message{}, false
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// tokenize normaliza a palabras minusculas alfanumericas.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r < 0x80
	})
	seen := make(map[string]bool, len(fields))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		words = append(words, f)
	}
	return words
}
