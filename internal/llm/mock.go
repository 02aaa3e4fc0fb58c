package llm

import (
	"context"
	"sync"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

// MockClient permite tests sin llamar a un LLM real. Script define la
// secuencia de eventos que emitira cada Stream. Los campos registrados se
// leen via accessors; varios turnos pueden escribirlos en paralelo.
type MockClient struct {
	Response  string
	Err       error
	Script    []StreamEvent
	StreamErr error

	mu           sync.Mutex
	lastMessages []domain.Message
	lastParams   RequestParams
}

func (m *MockClient) Generate(ctx context.Context, prompt string, params RequestParams) (string, error) {
	m.mu.Lock()
	m.lastParams = params
	m.mu.Unlock()
	return m.Response, m.Err
}

func (m *MockClient) Stream(ctx context.Context, messages []domain.Message, params RequestParams) (*CompletionStream, error) {
	m.mu.Lock()
	m.lastMessages = messages
	m.lastParams = params
	script := append([]StreamEvent(nil), m.Script...)
	m.mu.Unlock()
	if m.StreamErr != nil {
		return nil, m.StreamErr
	}
	return ScriptedStream(script...), nil
}

// LastMessages devuelve el contexto del ultimo Stream.
func (m *MockClient) LastMessages() []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Message(nil), m.lastMessages...)
}

// LastParams devuelve los parametros de la ultima llamada.
func (m *MockClient) LastParams() RequestParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastParams
}

// ScriptedStream arma un stream que reproduce los eventos dados y cierra.
func ScriptedStream(events ...StreamEvent) *CompletionStream {
	s := newCompletionStream()
	go func() {
		for _, ev := range events {
			switch ev.Kind {
			case EventData:
				s.data(ev.Content)
			case EventDone:
				s.done()
				return
			case EventError:
				s.fail(ev.Err)
				return
			}
		}
		s.done()
	}()
	return s
}

// MockTitleGenerator devuelve un titulo fijo.
type MockTitleGenerator struct {
	Title string
	Err   error

	mu    sync.Mutex
	calls int
}

func (m *MockTitleGenerator) GenerateTitle(ctx context.Context, chat *domain.Chat, params RequestParams) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.Title, m.Err
}

// Calls devuelve cuantas veces se pidio un titulo.
func (m *MockTitleGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
