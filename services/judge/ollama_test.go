package judge

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/instantcocoa/naxos/pkg/testutil"
)

func TestOllamaClient_Complete(t *testing.T) {
	mock := testutil.NewMockHTTPClient()
	mock.AddResponse(testutil.MockOllamaChatResponse(`{"verdicts": [1, 0]}`))

	client := NewOllamaClient("http://localhost:11434/", WithOllamaHTTPClient(mock))

	result, err := client.Complete(context.Background(), CompletionParams{
		Messages:    []Message{{Role: "user", Content: "score"}},
		Temperature: 0,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}

	if result.Content != `{"verdicts": [1, 0]}` {
		t.Errorf("unexpected content: %q", result.Content)
	}
	if result.Client != "ollama" {
		t.Errorf("expected client 'ollama', got %q", result.Client)
	}
	if result.Usage.TotalTokens != 30 {
		t.Errorf("expected 30 total tokens, got %d", result.Usage.TotalTokens)
	}

	req := mock.LastRequest()
	if req.URL.Path != "/api/chat" {
		t.Errorf("expected /api/chat, got %q", req.URL.Path)
	}

	var body ollamaRequest
	if err := json.Unmarshal(mock.LastRequestBody(), &body); err != nil {
		t.Fatalf("failed to parse request body: %v", err)
	}
	if body.Stream {
		t.Error("expected streaming disabled")
	}
	if body.Model != defaultOllamaModel {
		t.Errorf("expected default model, got %q", body.Model)
	}
	if body.Options == nil || body.Options.NumPredict != 256 {
		t.Errorf("expected num_predict 256, got %+v", body.Options)
	}
}

func TestOllamaClient_CompleteAPIError(t *testing.T) {
	mock := testutil.NewMockHTTPClient()
	mock.AddResponse(testutil.MockResponse{
		StatusCode: 404,
		Body:       `{"error": "model 'missing' not found"}`,
	})

	client := NewOllamaClient("", WithOllamaHTTPClient(mock))
	_, err := client.Complete(context.Background(), CompletionParams{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "model 'missing' not found") {
		t.Errorf("expected API error message, got: %v", err)
	}
}

func TestOllamaClient_Embed(t *testing.T) {
	mock := testutil.NewMockHTTPClient()
	mock.AddResponse(testutil.MockOllamaEmbedResponse([]float32{1, 0}))
	mock.AddResponse(testutil.MockOllamaEmbedResponse([]float32{0, 1}))

	client := NewOllamaClient("", WithOllamaHTTPClient(mock))
	result, err := client.Embed(context.Background(), EmbedParams{
		Texts: []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Embed() failed: %v", err)
	}

	if len(result.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result.Embeddings))
	}
	if mock.LastRequest().URL.Path != "/api/embeddings" {
		t.Errorf("expected /api/embeddings, got %q", mock.LastRequest().URL.Path)
	}
	if result.Model != defaultOllamaEmbedModel {
		t.Errorf("expected default embed model, got %q", result.Model)
	}
}

func TestOllamaClient_Available(t *testing.T) {
	mock := testutil.NewMockHTTPClient()
	mock.AddResponse(testutil.MockResponse{StatusCode: 200, Body: `{"models": []}`})

	client := NewOllamaClient("", WithOllamaHTTPClient(mock))
	if !client.Available(context.Background()) {
		t.Error("expected available when /api/tags responds")
	}

	mock.AddResponse(testutil.MockConnectionError())
	if client.Available(context.Background()) {
		t.Error("expected unavailable on connection error")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	mock := testutil.NewMockHTTPClient()
	reg.Register(NewOllamaClient("", WithOllamaHTTPClient(mock)))
	reg.Register(NewBedrockClient("AKID", "secret", "us-east-1"))

	// Backend selection resolves by client name.
	client, ok := reg.Get("ollama")
	if !ok || client.Name() != "ollama" {
		t.Error("expected registered ollama client")
	}
	client, ok = reg.Get("bedrock")
	if !ok || client.Name() != "bedrock" {
		t.Error("expected registered bedrock client")
	}
	if !client.Available(context.Background()) {
		t.Error("expected bedrock client with credentials to be available")
	}

	if _, ok := reg.Get("vertex"); ok {
		t.Error("expected missing client")
	}
	if len(reg.List()) != 2 {
		t.Errorf("expected 2 clients, got %d", len(reg.List()))
	}
}
