package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/instantcocoa/naxos/services/dataset"
)

func groundedDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	return buildDataset(t, &dataset.RawArtifact{
		Questions:    []string{"When was the Eiffel Tower built?"},
		Answers:      []string{"It was completed in 1889."},
		Contexts:     [][]string{{"The Eiffel Tower was completed in 1889.", "Paris hosts many landmarks."}},
		GroundTruths: []string{"The Eiffel Tower was completed in 1889."},
	})
}

func TestContextPrecision_Score(t *testing.T) {
	fake := &fakeJudge{completions: []string{`{"verdicts": [1, 0]}`}}
	m := NewContextPrecision(params(fake))

	results, err := m.Score(context.Background(), groundedDataset(t))
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}

	if !results[0].Valid {
		t.Fatalf("expected valid result, got %q", results[0].Reason)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Errorf("expected score 1.0, got %f", results[0].Score)
	}
}

func TestContextPrecision_VerdictCountMismatch(t *testing.T) {
	fake := &fakeJudge{completions: []string{`{"verdicts": [1]}`}}
	m := NewContextPrecision(params(fake))

	results, _ := m.Score(context.Background(), groundedDataset(t))
	if results[0].Valid {
		t.Error("expected unavailable for verdict count mismatch")
	}
}

func TestContextPrecision_NoGroundTruth(t *testing.T) {
	fake := &fakeJudge{}
	m := NewContextPrecision(params(fake))

	ds := buildDataset(t, &dataset.RawArtifact{
		Questions: []string{"q"},
		Answers:   []string{"a"},
		Contexts:  [][]string{{"c"}},
	})

	results, _ := m.Score(context.Background(), ds)
	if results[0].Valid || results[0].Reason != "no ground truth" {
		t.Errorf("expected 'no ground truth', got %+v", results[0])
	}
}

func TestContextRecall_Score(t *testing.T) {
	fake := &fakeJudge{completions: []string{`{"total": 2, "attributed": 1}`}}
	m := NewContextRecall(params(fake))

	results, err := m.Score(context.Background(), groundedDataset(t))
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}

	if !results[0].Valid {
		t.Fatalf("expected valid result, got %q", results[0].Reason)
	}
	if math.Abs(results[0].Score-0.5) > 1e-9 {
		t.Errorf("expected score 0.5, got %f", results[0].Score)
	}
}

func TestContextEntityRecall_Score(t *testing.T) {
	fake := &fakeJudge{completions: []string{
		`{"reference_entities": ["Eiffel Tower", "1889"], "context_entities": ["eiffel tower", "Paris"]}`,
	}}
	m := NewContextEntityRecall(params(fake))

	results, err := m.Score(context.Background(), groundedDataset(t))
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}

	if !results[0].Valid {
		t.Fatalf("expected valid result, got %q", results[0].Reason)
	}
	// Matching is case-insensitive: 1 of 2 reference entities found.
	if math.Abs(results[0].Score-0.5) > 1e-9 {
		t.Errorf("expected score 0.5, got %f", results[0].Score)
	}
}

func TestContextEntityRecall_NoEntities(t *testing.T) {
	fake := &fakeJudge{completions: []string{
		`{"reference_entities": [], "context_entities": ["Paris"]}`,
	}}
	m := NewContextEntityRecall(params(fake))

	results, _ := m.Score(context.Background(), groundedDataset(t))
	if results[0].Valid {
		t.Error("expected unavailable when reference has no entities")
	}
}

func TestAnswerRelevancy_Score(t *testing.T) {
	fake := &fakeJudge{embeddings: map[string][]float32{
		"When was the Eiffel Tower built?": {1, 0},
		"It was completed in 1889.":        {0, 1},
	}}
	m := NewAnswerRelevancy(params(fake))

	results, err := m.Score(context.Background(), groundedDataset(t))
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}

	if !results[0].Valid {
		t.Fatalf("expected valid result, got %q", results[0].Reason)
	}
	// Orthogonal embeddings rescale to 0.5.
	if math.Abs(results[0].Score-0.5) > 1e-9 {
		t.Errorf("expected score 0.5, got %f", results[0].Score)
	}
	if fake.embedCalls != 1 {
		t.Errorf("expected one embed call for the pair, got %d", fake.embedCalls)
	}
}

func TestAnswerSimilarity_Score(t *testing.T) {
	fake := &fakeJudge{embeddings: map[string][]float32{
		"It was completed in 1889.":               {1, 1},
		"The Eiffel Tower was completed in 1889.": {1, 1},
	}}
	m := NewAnswerSimilarity(params(fake))

	results, err := m.Score(context.Background(), groundedDataset(t))
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}

	if !results[0].Valid {
		t.Fatalf("expected valid result, got %q", results[0].Reason)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Errorf("expected score 1.0, got %f", results[0].Score)
	}
}

func TestAnswerSimilarity_NoGroundTruth(t *testing.T) {
	fake := &fakeJudge{}
	m := NewAnswerSimilarity(params(fake))

	ds := buildDataset(t, &dataset.RawArtifact{
		Questions: []string{"q"},
		Answers:   []string{"a"},
	})

	results, _ := m.Score(context.Background(), ds)
	if results[0].Valid || results[0].Reason != "no ground truth" {
		t.Errorf("expected 'no ground truth', got %+v", results[0])
	}
	if fake.embedCalls != 0 {
		t.Errorf("expected no embed calls, got %d", fake.embedCalls)
	}
}

func TestAnswerCorrectness_Score(t *testing.T) {
	fake := &fakeJudge{
		completions: []string{`{"tp": 1, "fp": 0, "fn": 0}`},
		embeddings: map[string][]float32{
			"It was completed in 1889.":               {1, 1},
			"The Eiffel Tower was completed in 1889.": {1, 1},
		},
	}
	m := NewAnswerCorrectness(params(fake))

	results, err := m.Score(context.Background(), groundedDataset(t))
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}

	if !results[0].Valid {
		t.Fatalf("expected valid result, got %q", results[0].Reason)
	}
	// f1 = 1.0, similarity = 1.0, blend = 0.75*1 + 0.25*1.
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Errorf("expected score 1.0, got %f", results[0].Score)
	}
}

func TestAnswerCorrectness_Blend(t *testing.T) {
	fake := &fakeJudge{
		completions: []string{`{"tp": 0, "fp": 1, "fn": 1}`},
		embeddings: map[string][]float32{
			"It was completed in 1889.":               {1, 0},
			"The Eiffel Tower was completed in 1889.": {0, 1},
		},
	}
	m := NewAnswerCorrectness(params(fake))

	results, _ := m.Score(context.Background(), groundedDataset(t))
	if !results[0].Valid {
		t.Fatalf("expected valid result, got %q", results[0].Reason)
	}
	// f1 = 0, similarity = 0.5, blend = 0.25*0.5.
	if math.Abs(results[0].Score-0.125) > 1e-9 {
		t.Errorf("expected score 0.125, got %f", results[0].Score)
	}
}

func TestAnswerCorrectness_InconsistentVerdict(t *testing.T) {
	fake := &fakeJudge{completions: []string{`{"tp": 0, "fp": 0, "fn": 0}`}}
	m := NewAnswerCorrectness(params(fake))

	results, _ := m.Score(context.Background(), groundedDataset(t))
	if results[0].Valid {
		t.Error("expected unavailable for empty verdict")
	}
}

func TestMetrics_ZeroIsAValidScore(t *testing.T) {
	// A fully unsupported answer scores 0.0 and stays valid; zero is a
	// real score, not an absence marker.
	fake := &fakeJudge{completions: []string{`{"total": 3, "supported": 0}`}}
	m := NewFaithfulness(params(fake))

	results, _ := m.Score(context.Background(), groundedDataset(t))
	if !results[0].Valid {
		t.Fatalf("expected valid result, got %q", results[0].Reason)
	}
	if results[0].Score != 0.0 {
		t.Errorf("expected score 0.0, got %f", results[0].Score)
	}
}
