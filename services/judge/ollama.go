package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL        = "http://localhost:11434"
	defaultOllamaModel      = "llama3.2"
	defaultOllamaEmbedModel = "nomic-embed-text"
)

// OllamaClient implements the Client interface for Ollama (local models).
// It is the offline/dev judge backend.
type OllamaClient struct {
	baseURL    string
	httpClient HTTPDoer
}

// OllamaOption configures the Ollama client.
type OllamaOption func(*OllamaClient)

// WithOllamaHTTPClient overrides the HTTP client.
func WithOllamaHTTPClient(doer HTTPDoer) OllamaOption {
	return func(c *OllamaClient) {
		c.httpClient = doer
	}
}

// NewOllamaClient creates a new Ollama judge backend.
func NewOllamaClient(baseURL string, opts ...OllamaOption) *OllamaClient {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	c := &OllamaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		// Long timeout for local inference.
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OllamaClient) Name() string {
	return "ollama"
}

func (c *OllamaClient) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Ollama API types
type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64  `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"` // max_tokens equivalent
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

type ollamaError struct {
	Error string `json:"error"`
}

func (c *OllamaClient) Complete(ctx context.Context, params CompletionParams) (*CompletionResult, error) {
	model := params.Model
	if model == "" {
		model = defaultOllamaModel
	}

	messages := make([]ollamaMessage, 0, len(params.Messages))
	for _, m := range params.Messages {
		messages = append(messages, ollamaMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	reqBody := ollamaRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}

	if params.Temperature > 0 || params.MaxTokens > 0 || params.TopP > 0 || len(params.Stop) > 0 {
		reqBody.Options = &ollamaOptions{
			Temperature: params.Temperature,
			NumPredict:  params.MaxTokens,
			TopP:        params.TopP,
			Stop:        params.Stop,
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := c.post(ctx, "/api/chat", body)
	if err != nil {
		return nil, err
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &CompletionResult{
		Content: ollamaResp.Message.Content,
		Client:  c.Name(),
		Model:   ollamaResp.Model,
		Usage: Usage{
			PromptTokens:     ollamaResp.PromptEvalCount,
			CompletionTokens: ollamaResp.EvalCount,
			TotalTokens:      ollamaResp.PromptEvalCount + ollamaResp.EvalCount,
		},
	}, nil
}

func (c *OllamaClient) Embed(ctx context.Context, params EmbedParams) (*EmbedResult, error) {
	model := params.Model
	if model == "" {
		model = defaultOllamaEmbedModel
	}

	// Ollama only supports one text at a time.
	embeddings := make([]Embedding, 0, len(params.Texts))

	for _, text := range params.Texts {
		body, err := json.Marshal(map[string]interface{}{
			"model":  model,
			"prompt": text,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		respBody, err := c.post(ctx, "/api/embeddings", body)
		if err != nil {
			return nil, err
		}

		var embedResp struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.Unmarshal(respBody, &embedResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		embeddings = append(embeddings, Embedding{
			Values:     embedResp.Embedding,
			Dimensions: len(embedResp.Embedding),
		})
	}

	return &EmbedResult{
		Embeddings: embeddings,
		Client:     c.Name(),
		Model:      model,
	}, nil
}

func (c *OllamaClient) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("Ollama API error: %s", apiErr.Error)
		}
		return nil, fmt.Errorf("Ollama API error: status %d", resp.StatusCode)
	}

	return respBody, nil
}
