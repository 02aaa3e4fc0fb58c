package domain

import "errors"

var (
	ErrMessageExists   = errors.New("message id already in tree")
	ErrMessageNotFound = errors.New("message not found in tree")
	ErrParentNotFound  = errors.New("parent message not found in tree")
)

// MessageTree almacena los mensajes de un chat indexados por id, con los
// enlaces al padre como ids. Mantiene el orden de insercion para serializar.
type MessageTree struct {
	nodes map[string]*Message
	order []string
}

func NewMessageTree() *MessageTree {
	return &MessageTree{nodes: make(map[string]*Message)}
}

// Len devuelve la cantidad de nodos.
func (t *MessageTree) Len() int {
	return len(t.nodes)
}

// AddMessage inserta un nodo nuevo. Falla si el id ya existe o si el padre
// declarado no esta en el arbol.
func (t *MessageTree) AddMessage(m Message) error {
	if m.ID == "" {
		return ErrMessageNotFound
	}
	if _, ok := t.nodes[m.ID]; ok {
		return ErrMessageExists
	}
	if m.ParentID != "" {
		if _, ok := t.nodes[m.ParentID]; !ok {
			return ErrParentNotFound
		}
	}
	stored := m
	t.nodes[m.ID] = &stored
	t.order = append(t.order, m.ID)
	return nil
}

// UpdateMessage reemplaza los campos mutables (Content, Done) del nodo con
// ese id, sin tocar la topologia. Falla si el id no existe.
func (t *MessageTree) UpdateMessage(m Message) error {
	node, ok := t.nodes[m.ID]
	if !ok {
		return ErrMessageNotFound
	}
	node.Content = m.Content
	node.Done = m.Done
	return nil
}

// Get devuelve una copia del mensaje con ese id.
func (t *MessageTree) Get(id string) (Message, bool) {
	node, ok := t.nodes[id]
	if !ok {
		return Message{}, false
	}
	return *node, true
}

// First devuelve el mensaje raiz efectivo (el primer nodo insertado sin
// padre), usado como preview del chat.
func (t *MessageTree) First() (Message, bool) {
	for _, id := range t.order {
		if t.nodes[id].ParentID == "" {
			return *t.nodes[id], true
		}
	}
	return Message{}, false
}

// MessageChainTo devuelve la secuencia raiz→id, ambos incluidos. Ese orden
// es el contexto exacto que se envia al modelo, no es cosmetico.
func (t *MessageTree) MessageChainTo(id string) ([]Message, error) {
	node, ok := t.nodes[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	var chain []Message
	for {
		chain = append([]Message{*node}, chain...)
		if node.ParentID == "" {
			return chain, nil
		}
		node, ok = t.nodes[node.ParentID]
		if !ok {
			// Enlace roto: devolvemos lo reconstruible desde ese punto.
			return chain, nil
		}
	}
}

// Serialize aplana el arbol en orden de insercion. Reconstruct sobre esta
// secuencia produce un arbol identico.
func (t *MessageTree) Serialize() []Message {
	if t == nil {
		return nil
	}
	out := make([]Message, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.nodes[id])
	}
	return out
}

// Reconstruct arma un arbol desde una secuencia aplanada. No asume orden
// padre-antes-que-hijo: los nodos cuyo padre todavia no aparecio se
// reintentan, y los definitivamente huerfanos se descartan para que un
// snapshot malformado nunca tumbe la carga.
func Reconstruct(messages []Message) *MessageTree {
	t := NewMessageTree()
	pending := messages
	for len(pending) > 0 {
		var next []Message
		inserted := false
		for _, m := range pending {
			switch err := t.AddMessage(m); err {
			case nil:
				inserted = true
			case ErrParentNotFound:
				next = append(next, m)
			default:
				// Duplicado o id vacio: se ignora.
			}
		}
		if !inserted {
			break
		}
		pending = next
	}
	return t
}
