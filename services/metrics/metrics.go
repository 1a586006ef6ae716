// Package metrics provides the scoring capabilities for RAG evaluation runs.
//
// Each metric scores the full dataset in one invocation and returns one
// result per sample, in dataset order. Metrics never mutate the dataset.
// A sample for which no usable score could be produced carries an explicit
// unavailability marker; this is distinct from a valid score of zero.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/instantcocoa/naxos/services/dataset"
	"github.com/instantcocoa/naxos/services/judge"
)

// Result is one metric's output for one sample.
type Result struct {
	Score  float64
	Valid  bool
	Reason string // failure reason when not valid
	Tokens int    // judge tokens spent on this sample
}

// Value returns an available result.
func Value(score float64) Result {
	return Result{Score: score, Valid: true}
}

// Unavailable returns a result carrying a failure reason and no score.
func Unavailable(reason string) Result {
	return Result{Valid: false, Reason: reason}
}

// Metric is a scoring capability. Implementations must return exactly
// ds.Len() results in sample order.
type Metric interface {
	// Name returns the stable metric identifier.
	Name() string

	// Score evaluates the full dataset.
	Score(ctx context.Context, ds *dataset.Dataset) ([]Result, error)
}

// Registry holds the configured metrics in registration order.
type Registry struct {
	ordered []Metric
	byName  map[string]Metric
}

// NewRegistry creates an empty metric registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Metric)}
}

// Register adds a metric. Re-registering a name replaces the previous
// entry but keeps its position.
func (r *Registry) Register(m Metric) {
	if _, exists := r.byName[m.Name()]; !exists {
		r.ordered = append(r.ordered, m)
	} else {
		for i, existing := range r.ordered {
			if existing.Name() == m.Name() {
				r.ordered[i] = m
				break
			}
		}
	}
	r.byName[m.Name()] = m
}

// Get retrieves a metric by name.
func (r *Registry) Get(name string) (Metric, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Names returns the registered metric names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.ordered))
	for i, m := range r.ordered {
		names[i] = m.Name()
	}
	return names
}

// Select resolves names to metrics, preserving the requested order.
// An empty selection returns all registered metrics.
func (r *Registry) Select(names []string) ([]Metric, error) {
	if len(names) == 0 {
		return append([]Metric(nil), r.ordered...), nil
	}

	selected := make([]Metric, 0, len(names))
	for _, name := range names {
		m, ok := r.byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown metric: %s", name)
		}
		selected = append(selected, m)
	}
	return selected, nil
}

// JudgeParams configures the judge backend shared by the built-in metrics.
type JudgeParams struct {
	Client     judge.Client
	Model      string
	EmbedModel string
}

// DefaultRegistry registers the built-in metrics in their canonical
// report order.
func DefaultRegistry(p JudgeParams) *Registry {
	r := NewRegistry()
	r.Register(NewFaithfulness(p))
	r.Register(NewAnswerRelevancy(p))
	r.Register(NewContextPrecision(p))
	r.Register(NewContextRecall(p))
	r.Register(NewContextEntityRecall(p))
	r.Register(NewAnswerSimilarity(p))
	r.Register(NewAnswerCorrectness(p))
	return r
}

// completeJSON sends a judge prompt and decodes the JSON object in the
// reply into dest. Judge models occasionally wrap JSON in code fences or
// prose; the first balanced object in the reply is used.
func completeJSON(ctx context.Context, p JudgeParams, system, user string, dest interface{}) (int, error) {
	result, err := p.Client.Complete(ctx, judge.CompletionParams{
		Model: p.Model,
		Messages: []judge.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0,
		MaxTokens:   1024,
	})
	if err != nil {
		return 0, err
	}

	raw, err := extractJSON(result.Content)
	if err != nil {
		return result.Usage.TotalTokens, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return result.Usage.TotalTokens, fmt.Errorf("malformed judge verdict: %w", err)
	}
	return result.Usage.TotalTokens, nil
}

// extractJSON returns the first balanced JSON object in s.
func extractJSON(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("judge reply contains no JSON object")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("judge reply contains unterminated JSON object")
}

// cosineSimilarity computes the cosine similarity of two vectors,
// rescaled from [-1,1] to [0,1].
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-magnitude embedding")
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2, nil
}

// embedPair embeds two texts in one call and returns their similarity.
func embedPair(ctx context.Context, p JudgeParams, a, b string) (float64, error) {
	result, err := p.Client.Embed(ctx, judge.EmbedParams{
		Model: p.EmbedModel,
		Texts: []string{a, b},
	})
	if err != nil {
		return 0, err
	}
	if len(result.Embeddings) != 2 {
		return 0, fmt.Errorf("expected 2 embeddings, got %d", len(result.Embeddings))
	}
	return cosineSimilarity(result.Embeddings[0].Values, result.Embeddings[1].Values)
}

// numberedList formats passages for a judge prompt.
func numberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return b.String()
}
