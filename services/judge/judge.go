// Package judge provides LLM judge backends used by the metric capabilities.
package judge

import (
	"context"
)

// Message is a single chat message sent to a judge model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionParams contains parameters for a judge completion call.
type CompletionParams struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}

// Usage tracks token consumption for a judge call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResult is the judge model's reply.
type CompletionResult struct {
	Content string
	Client  string
	Model   string
	Usage   Usage
}

// EmbedParams contains parameters for an embedding call.
type EmbedParams struct {
	Model string
	Texts []string
}

// Embedding is a single embedding vector.
type Embedding struct {
	Values     []float32
	Dimensions int
}

// EmbedResult contains embeddings for the requested texts, in order.
type EmbedResult struct {
	Embeddings []Embedding
	Client     string
	Model      string
}

// Client is the contract for a judge backend. Calls are synchronous and
// blocking; timeout and cancellation travel through the context.
type Client interface {
	// Name returns the backend name.
	Name() string

	// Available checks if the backend is usable.
	Available(ctx context.Context) bool

	// Complete performs a completion request.
	Complete(ctx context.Context, params CompletionParams) (*CompletionResult, error)

	// Embed generates embeddings.
	Embed(ctx context.Context, params EmbedParams) (*EmbedResult, error)
}

// Registry manages available judge backends.
type Registry struct {
	clients map[string]Client
}

// NewRegistry creates a new backend registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
	}
}

// Register adds a backend to the registry.
func (r *Registry) Register(c Client) {
	r.clients[c.Name()] = c
}

// Get retrieves a backend by name.
func (r *Registry) Get(name string) (Client, bool) {
	c, ok := r.clients[name]
	return c, ok
}

// List returns all registered backends.
func (r *Registry) List() []Client {
	clients := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}
