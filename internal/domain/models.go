package domain

import "time"

// Roles admitidos para un mensaje dentro de un chat.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message es un nodo del arbol de conversacion. La identidad (ID, ChatID,
// ParentID, Role) es inmutable tras la creacion; solo Content y Done cambian
// durante el streaming.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Done      bool      `json:"done"`
}

// Chat es una sesion de conversacion con su arbol de mensajes.
type Chat struct {
	ID      string
	Title   string
	Tree    *MessageTree
	Created time.Time
	Updated time.Time
}

// Touch marca el chat como modificado ahora.
func (c *Chat) Touch() {
	c.Updated = time.Now().UTC()
}

// ChatSnapshot es la forma serializada de un chat: los mensajes en orden de
// insercion, suficientes para reconstruir el arbol identico.
type ChatSnapshot struct {
	ID       string    `json:"id"`
	Title    string    `json:"title,omitempty"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
	Messages []Message `json:"messages"`
}

// Snapshot serializa el chat completo.
func (c *Chat) Snapshot() ChatSnapshot {
	return ChatSnapshot{
		ID:       c.ID,
		Title:    c.Title,
		Created:  c.Created,
		Updated:  c.Updated,
		Messages: c.Tree.Serialize(),
	}
}

// ChatFromSnapshot reconstruye un chat desde su forma serializada.
func ChatFromSnapshot(s ChatSnapshot) *Chat {
	return &Chat{
		ID:      s.ID,
		Title:   s.Title,
		Tree:    Reconstruct(s.Messages),
		Created: s.Created,
		Updated: s.Updated,
	}
}
