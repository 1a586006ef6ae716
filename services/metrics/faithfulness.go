package metrics

import (
	"context"
	"fmt"

	"github.com/instantcocoa/naxos/services/dataset"
)

const faithfulnessSystem = `You are an evaluator checking whether an answer is faithful to its retrieved contexts.
Break the answer into its factual statements, then count how many of those statements can be inferred from the contexts alone.
Respond with a single JSON object: {"total": <number of statements>, "supported": <number of supported statements>}.`

// Faithfulness measures how grounded the answer is in the retrieved
// contexts: the fraction of answer statements inferable from them.
type Faithfulness struct {
	params JudgeParams
}

// NewFaithfulness creates the faithfulness metric.
func NewFaithfulness(p JudgeParams) *Faithfulness {
	return &Faithfulness{params: p}
}

func (m *Faithfulness) Name() string {
	return "faithfulness"
}

// Score evaluates every sample with one judge call each.
func (m *Faithfulness) Score(ctx context.Context, ds *dataset.Dataset) ([]Result, error) {
	results := make([]Result, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		results[i] = m.scoreSample(ctx, ds.Record(i))
	}
	return results, nil
}

func (m *Faithfulness) scoreSample(ctx context.Context, rec dataset.Record) Result {
	if rec.Answer == "" {
		return Unavailable("empty answer")
	}
	if len(rec.Contexts) == 0 {
		return Unavailable("no retrieved contexts")
	}

	user := fmt.Sprintf("Question:\n%s\n\nAnswer:\n%s\n\nContexts:\n%s",
		rec.Question, rec.Answer, numberedList(rec.Contexts))

	var verdict struct {
		Total     int `json:"total"`
		Supported int `json:"supported"`
	}
	tokens, err := completeJSON(ctx, m.params, faithfulnessSystem, user, &verdict)
	if err != nil {
		return Unavailable(err.Error())
	}
	if verdict.Total <= 0 {
		return Unavailable("answer contains no checkable statements")
	}
	if verdict.Supported < 0 || verdict.Supported > verdict.Total {
		return Unavailable("inconsistent judge verdict")
	}

	r := Value(float64(verdict.Supported) / float64(verdict.Total))
	r.Tokens = tokens
	return r
}
