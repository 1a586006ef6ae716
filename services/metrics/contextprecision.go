package metrics

import (
	"context"
	"fmt"

	"github.com/instantcocoa/naxos/services/dataset"
)

const contextPrecisionSystem = `You are an evaluator judging retrieved contexts.
For each numbered context, decide whether it is useful for arriving at the reference answer to the question.
Respond with a single JSON object: {"verdicts": [<1 or 0 per context, in order>]}.`

// ContextPrecision measures whether the useful contexts are ranked ahead
// of the noise: mean precision@k over the positions the judge marks useful.
type ContextPrecision struct {
	params JudgeParams
}

// NewContextPrecision creates the context precision metric.
func NewContextPrecision(p JudgeParams) *ContextPrecision {
	return &ContextPrecision{params: p}
}

func (m *ContextPrecision) Name() string {
	return "context_precision"
}

func (m *ContextPrecision) Score(ctx context.Context, ds *dataset.Dataset) ([]Result, error) {
	results := make([]Result, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		results[i] = m.scoreSample(ctx, ds.Record(i))
	}
	return results, nil
}

func (m *ContextPrecision) scoreSample(ctx context.Context, rec dataset.Record) Result {
	if rec.GroundTruth == "" {
		return Unavailable("no ground truth")
	}
	if len(rec.Contexts) == 0 {
		return Unavailable("no retrieved contexts")
	}

	user := fmt.Sprintf("Question:\n%s\n\nReference answer:\n%s\n\nContexts:\n%s",
		rec.Question, rec.GroundTruth, numberedList(rec.Contexts))

	var verdict struct {
		Verdicts []int `json:"verdicts"`
	}
	tokens, err := completeJSON(ctx, m.params, contextPrecisionSystem, user, &verdict)
	if err != nil {
		return Unavailable(err.Error())
	}
	if len(verdict.Verdicts) != len(rec.Contexts) {
		return Unavailable(fmt.Sprintf("judge returned %d verdicts for %d contexts", len(verdict.Verdicts), len(rec.Contexts)))
	}

	r := Value(averagePrecision(verdict.Verdicts))
	r.Tokens = tokens
	return r
}

// averagePrecision computes mean precision@k over the relevant positions.
func averagePrecision(verdicts []int) float64 {
	relevant := 0
	sum := 0.0
	for k, v := range verdicts {
		if v > 0 {
			relevant++
			sum += float64(relevant) / float64(k+1)
		}
	}
	if relevant == 0 {
		return 0
	}
	return sum / float64(relevant)
}
