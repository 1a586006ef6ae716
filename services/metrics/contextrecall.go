package metrics

import (
	"context"
	"fmt"

	"github.com/instantcocoa/naxos/services/dataset"
)

const contextRecallSystem = `You are an evaluator checking retrieval coverage.
Break the reference answer into its sentences, then count how many of those sentences can be attributed to the retrieved contexts.
Respond with a single JSON object: {"total": <number of sentences>, "attributed": <number attributable to the contexts>}.`

// ContextRecall measures how much of the reference answer the retrieved
// contexts cover.
type ContextRecall struct {
	params JudgeParams
}

// NewContextRecall creates the context recall metric.
func NewContextRecall(p JudgeParams) *ContextRecall {
	return &ContextRecall{params: p}
}

func (m *ContextRecall) Name() string {
	return "context_recall"
}

func (m *ContextRecall) Score(ctx context.Context, ds *dataset.Dataset) ([]Result, error) {
	results := make([]Result, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		results[i] = m.scoreSample(ctx, ds.Record(i))
	}
	return results, nil
}

func (m *ContextRecall) scoreSample(ctx context.Context, rec dataset.Record) Result {
	if rec.GroundTruth == "" {
		return Unavailable("no ground truth")
	}
	if len(rec.Contexts) == 0 {
		return Unavailable("no retrieved contexts")
	}

	user := fmt.Sprintf("Question:\n%s\n\nReference answer:\n%s\n\nContexts:\n%s",
		rec.Question, rec.GroundTruth, numberedList(rec.Contexts))

	var verdict struct {
		Total      int `json:"total"`
		Attributed int `json:"attributed"`
	}
	tokens, err := completeJSON(ctx, m.params, contextRecallSystem, user, &verdict)
	if err != nil {
		return Unavailable(err.Error())
	}
	if verdict.Total <= 0 {
		return Unavailable("reference answer contains no sentences")
	}
	if verdict.Attributed < 0 || verdict.Attributed > verdict.Total {
		return Unavailable("inconsistent judge verdict")
	}

	r := Value(float64(verdict.Attributed) / float64(verdict.Total))
	r.Tokens = tokens
	return r
}
