package metrics

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/instantcocoa/naxos/services/dataset"
)

func TestFaithfulness_Score(t *testing.T) {
	fake := &fakeJudge{completions: []string{`{"total": 4, "supported": 3}`}}
	m := NewFaithfulness(params(fake))

	ds := buildDataset(t, &dataset.RawArtifact{
		Questions: []string{"What is the capital of France?"},
		Answers:   []string{"Paris is the capital of France."},
		Contexts:  [][]string{{"Paris is the capital and largest city of France."}},
	})

	results, err := m.Score(context.Background(), ds)
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if !r.Valid {
		t.Fatalf("expected valid result, got reason %q", r.Reason)
	}
	if math.Abs(r.Score-0.75) > 1e-9 {
		t.Errorf("expected score 0.75, got %f", r.Score)
	}
	if r.Tokens != 10 {
		t.Errorf("expected 10 tokens, got %d", r.Tokens)
	}
}

func TestFaithfulness_UnavailableSamples(t *testing.T) {
	fake := &fakeJudge{}
	m := NewFaithfulness(params(fake))

	ds := buildDataset(t, &dataset.RawArtifact{
		Questions: []string{"q1", "q2"},
		Answers:   []string{"", "a2"},
		Contexts:  [][]string{{"c1"}, nil},
	})

	results, err := m.Score(context.Background(), ds)
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}

	if results[0].Valid || results[0].Reason != "empty answer" {
		t.Errorf("expected 'empty answer', got %+v", results[0])
	}
	if results[1].Valid || results[1].Reason != "no retrieved contexts" {
		t.Errorf("expected 'no retrieved contexts', got %+v", results[1])
	}
	if fake.completeCalls != 0 {
		t.Errorf("expected no judge calls, got %d", fake.completeCalls)
	}
}

func TestFaithfulness_InconsistentVerdict(t *testing.T) {
	tests := []struct {
		name    string
		verdict string
	}{
		{"zero statements", `{"total": 0, "supported": 0}`},
		{"supported exceeds total", `{"total": 2, "supported": 3}`},
		{"negative supported", `{"total": 2, "supported": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeJudge{completions: []string{tt.verdict}}
			m := NewFaithfulness(params(fake))

			ds := buildDataset(t, &dataset.RawArtifact{
				Questions: []string{"q"},
				Answers:   []string{"a"},
				Contexts:  [][]string{{"c"}},
			})

			results, _ := m.Score(context.Background(), ds)
			if results[0].Valid {
				t.Errorf("expected unavailable for verdict %s", tt.verdict)
			}
		})
	}
}

func TestFaithfulness_JudgeError(t *testing.T) {
	fake := &fakeJudge{completeErr: fmt.Errorf("throttled")}
	m := NewFaithfulness(params(fake))

	ds := buildDataset(t, &dataset.RawArtifact{
		Questions: []string{"q"},
		Answers:   []string{"a"},
		Contexts:  [][]string{{"c"}},
	})

	results, err := m.Score(context.Background(), ds)
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}
	// A judge failure marks the sample unavailable, it does not abort.
	if results[0].Valid {
		t.Error("expected unavailable result")
	}
	if !strings.Contains(results[0].Reason, "throttled") {
		t.Errorf("expected reason to carry the cause, got %q", results[0].Reason)
	}
}

func TestFaithfulness_FencedVerdict(t *testing.T) {
	fake := &fakeJudge{completions: []string{
		"Here is my verdict:\n```json\n{\"total\": 2, \"supported\": 2}\n```",
	}}
	m := NewFaithfulness(params(fake))

	ds := buildDataset(t, &dataset.RawArtifact{
		Questions: []string{"q"},
		Answers:   []string{"a"},
		Contexts:  [][]string{{"c"}},
	})

	results, _ := m.Score(context.Background(), ds)
	if !results[0].Valid || results[0].Score != 1.0 {
		t.Errorf("expected score 1.0 from fenced verdict, got %+v", results[0])
	}
}
