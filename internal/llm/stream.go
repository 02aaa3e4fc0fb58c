package llm

// StreamEventKind distingue los tres eventos posibles de un stream.
type StreamEventKind string

const (
	EventData  StreamEventKind = "data"
	EventDone  StreamEventKind = "done"
	EventError StreamEventKind = "error"
)

// StreamEvent es un evento del stream de completion. Content trae el texto
// acumulado hasta el momento, no el delta.
type StreamEvent struct {
	Kind    StreamEventKind
	Content string
	Err     error
}

// CompletionStream entrega los eventos de una completion en orden. Despues
// del evento terminal (done o error) el canal se cierra.
type CompletionStream struct {
	events chan StreamEvent
}

func newCompletionStream() *CompletionStream {
	return &CompletionStream{events: make(chan StreamEvent, 16)}
}

// Events expone el canal de eventos del stream.
func (s *CompletionStream) Events() <-chan StreamEvent {
	return s.events
}

func (s *CompletionStream) data(cumulative string) {
	s.events <- StreamEvent{Kind: EventData, Content: cumulative}
}

func (s *CompletionStream) done() {
	s.events <- StreamEvent{Kind: EventDone}
	close(s.events)
}

func (s *CompletionStream) fail(err error) {
	s.events <- StreamEvent{Kind: EventError, Err: err}
	close(s.events)
}
