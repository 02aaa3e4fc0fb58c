package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danieldev0724/chat-with-gpt/internal/domain"
)

// RequestParams son los parametros por request, credenciales incluidas.
type RequestParams struct {
	APIKey      string
	Model       string
	Temperature float64
}

// CompletionClient define la interfaz hacia el proveedor de completions.
type CompletionClient interface {
	Generate(ctx context.Context, prompt string, params RequestParams) (string, error)
	Stream(ctx context.Context, messages []domain.Message, params RequestParams) (*CompletionStream, error)
}

type logger interface {
	Printf(format string, v ...interface{})
}

// HTTPClient implementa CompletionClient contra una API OpenAI-compatible.
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  logger
}

// NewHTTPClient construye un cliente HTTP apuntando a la API de chat completions.
func NewHTTPClient(baseURL, apiKey, model string, log any) *HTTPClient {
	l, _ := log.(logger)
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  l,
	}
}

func (c *HTTPClient) resolve(params RequestParams) (apiKey, model string) {
	apiKey = params.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}
	model = params.Model
	if model == "" {
		model = c.model
	}
	return apiKey, model
}

// Generate pide una respuesta completa, sin streaming. Se usa para prompts
// cortos como la generacion de titulos.
func (c *HTTPClient) Generate(ctx context.Context, prompt string, params RequestParams) (string, error) {
	apiKey, model := c.resolve(params)
	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: domain.RoleUser, Content: prompt},
		},
		Temperature: params.Temperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if c.logger != nil {
			c.logger.Printf("llm error status %d: %s", resp.StatusCode, string(respBody))
		}
		return "", fmt.Errorf("llm http error: status=%d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if cr.Error != nil {
		return "", fmt.Errorf("llm api error: %s", cr.Error.Message)
	}

	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("llm empty response")
	}

	return cr.Choices[0].Message.Content, nil
}

// Stream abre una completion con stream:true y proyecta los chunks SSE como
// eventos con el texto acumulado. El canal entrega los eventos en orden y se
// cierra despues del evento terminal.
func (c *HTTPClient) Stream(ctx context.Context, messages []domain.Message, params RequestParams) (*CompletionStream, error) {
	apiKey, model := c.resolve(params)
	reqMessages := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, chatMessage{Role: m.Role, Content: m.Content})
	}

	reqBody := chatRequest{
		Model:       model,
		Messages:    reqMessages,
		Temperature: params.Temperature,
		Stream:      true,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if c.logger != nil {
			c.logger.Printf("llm stream error status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("llm http error: status=%d", resp.StatusCode)
	}

	stream := newCompletionStream()
	go c.readSSE(resp.Body, stream)
	return stream, nil
}

// readSSE consume el body linea a linea acumulando los deltas.
func (c *HTTPClient) readSSE(body io.ReadCloser, stream *CompletionStream) {
	defer body.Close()

	var cumulative strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			stream.done()
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// Chunk ilegible: se ignora, el proximo puede estar bien.
			continue
		}
		if chunk.Error != nil {
			stream.fail(fmt.Errorf("llm api error: %s", chunk.Error.Message))
			return
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		cumulative.WriteString(delta)
		stream.data(cumulative.String())
	}

	if err := scanner.Err(); err != nil {
		stream.fail(fmt.Errorf("read stream: %w", err))
		return
	}
	// El proveedor corto el stream sin [DONE]; se trata como terminado.
	stream.done()
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
