package metrics

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/instantcocoa/naxos/services/dataset"
	"github.com/instantcocoa/naxos/services/judge"
)

// fakeJudge is a scripted judge backend. Completions are returned in
// order; embeddings are looked up by text.
type fakeJudge struct {
	completions []string
	completeErr error
	embeddings  map[string][]float32
	embedErr    error

	completeCalls int
	embedCalls    int
}

func (f *fakeJudge) Name() string                       { return "fake" }
func (f *fakeJudge) Available(ctx context.Context) bool { return true }

func (f *fakeJudge) Complete(ctx context.Context, params judge.CompletionParams) (*judge.CompletionResult, error) {
	f.completeCalls++
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	if len(f.completions) == 0 {
		return nil, fmt.Errorf("no scripted completion")
	}
	content := f.completions[0]
	f.completions = f.completions[1:]
	return &judge.CompletionResult{
		Content: content,
		Client:  "fake",
		Usage:   judge.Usage{TotalTokens: 10},
	}, nil
}

func (f *fakeJudge) Embed(ctx context.Context, params judge.EmbedParams) (*judge.EmbedResult, error) {
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	embeddings := make([]judge.Embedding, 0, len(params.Texts))
	for _, text := range params.Texts {
		values, ok := f.embeddings[text]
		if !ok {
			values = []float32{1, 0}
		}
		embeddings = append(embeddings, judge.Embedding{Values: values, Dimensions: len(values)})
	}
	return &judge.EmbedResult{Embeddings: embeddings, Client: "fake"}, nil
}

func params(f *fakeJudge) JudgeParams {
	return JudgeParams{Client: f}
}

func buildDataset(t *testing.T, raw *dataset.RawArtifact) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Build(raw)
	if err != nil {
		t.Fatalf("failed to build dataset: %v", err)
	}
	return ds
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`{"a": 1}`, `{"a": 1}`, false},
		{"Here is the verdict:\n```json\n{\"a\": 1}\n```", `{"a": 1}`, false},
		{`prefix {"a": {"b": 2}} suffix`, `{"a": {"b": 2}}`, false},
		{`{"s": "brace } in string"}`, `{"s": "brace } in string"}`, false},
		{`no json here`, "", true},
		{`{"unterminated": 1`, "", true},
	}

	for _, tt := range tests {
		got, err := extractJSON(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("extractJSON(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("extractJSON(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.5},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity_Errors(t *testing.T) {
	if _, err := cosineSimilarity([]float32{1}, []float32{1, 2}); err == nil {
		t.Error("expected error for dimension mismatch")
	}
	if _, err := cosineSimilarity(nil, nil); err == nil {
		t.Error("expected error for empty vectors")
	}
	if _, err := cosineSimilarity([]float32{0, 0}, []float32{1, 0}); err == nil {
		t.Error("expected error for zero-magnitude vector")
	}
}

func TestRegistry_OrderAndSelect(t *testing.T) {
	reg := DefaultRegistry(JudgeParams{})

	want := []string{
		"faithfulness",
		"answer_relevancy",
		"context_precision",
		"context_recall",
		"context_entity_recall",
		"answer_similarity",
		"answer_correctness",
	}

	names := reg.Names()
	if len(names) != len(want) {
		t.Fatalf("expected %d metrics, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("metric %d: expected %q, got %q", i, want[i], names[i])
		}
	}

	// Empty selection means everything.
	all, err := reg.Select(nil)
	if err != nil {
		t.Fatalf("Select(nil) failed: %v", err)
	}
	if len(all) != len(want) {
		t.Errorf("expected %d metrics, got %d", len(want), len(all))
	}

	// Explicit selection preserves the requested order.
	subset, err := reg.Select([]string{"context_recall", "faithfulness"})
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	if subset[0].Name() != "context_recall" || subset[1].Name() != "faithfulness" {
		t.Errorf("unexpected selection order: %s, %s", subset[0].Name(), subset[1].Name())
	}

	if _, err := reg.Select([]string{"nonsense"}); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestRegistry_ReplaceKeepsPosition(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewFaithfulness(JudgeParams{}))
	reg.Register(NewAnswerRelevancy(JudgeParams{}))

	replacement := NewFaithfulness(JudgeParams{})
	reg.Register(replacement)

	names := reg.Names()
	if len(names) != 2 || names[0] != "faithfulness" {
		t.Errorf("expected faithfulness to keep first position, got %v", names)
	}
}

func TestAveragePrecision(t *testing.T) {
	tests := []struct {
		verdicts []int
		want     float64
	}{
		{[]int{1, 1, 1}, 1.0},
		{[]int{0, 0, 0}, 0.0},
		{[]int{1, 0, 0}, 1.0},
		{[]int{0, 0, 1}, 1.0 / 3.0},
		{[]int{1, 0, 1}, (1.0 + 2.0/3.0) / 2.0},
	}

	for _, tt := range tests {
		got := averagePrecision(tt.verdicts)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("averagePrecision(%v) = %f, want %f", tt.verdicts, got, tt.want)
		}
	}
}

func TestStatementF1(t *testing.T) {
	tests := []struct {
		tp, fp, fn int
		want       float64
	}{
		{1, 0, 0, 1.0},
		{0, 1, 1, 0.0},
		{0, 0, 0, 0.0},
		{2, 1, 1, 2.0 / 3.0},
	}

	for _, tt := range tests {
		got := statementF1(tt.tp, tt.fp, tt.fn)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("statementF1(%d,%d,%d) = %f, want %f", tt.tp, tt.fp, tt.fn, got, tt.want)
		}
	}
}
