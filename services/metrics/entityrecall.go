package metrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/instantcocoa/naxos/services/dataset"
)

const entityRecallSystem = `You are an evaluator extracting named entities.
Extract the named entities (people, places, organizations, dates, quantities) from the reference answer and from the contexts.
Respond with a single JSON object: {"reference_entities": [...], "context_entities": [...]}.`

// ContextEntityRecall measures the fraction of reference-answer entities
// that also appear in the retrieved contexts.
type ContextEntityRecall struct {
	params JudgeParams
}

// NewContextEntityRecall creates the context entity recall metric.
func NewContextEntityRecall(p JudgeParams) *ContextEntityRecall {
	return &ContextEntityRecall{params: p}
}

func (m *ContextEntityRecall) Name() string {
	return "context_entity_recall"
}

func (m *ContextEntityRecall) Score(ctx context.Context, ds *dataset.Dataset) ([]Result, error) {
	results := make([]Result, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		results[i] = m.scoreSample(ctx, ds.Record(i))
	}
	return results, nil
}

func (m *ContextEntityRecall) scoreSample(ctx context.Context, rec dataset.Record) Result {
	if rec.GroundTruth == "" {
		return Unavailable("no ground truth")
	}
	if len(rec.Contexts) == 0 {
		return Unavailable("no retrieved contexts")
	}

	user := fmt.Sprintf("Reference answer:\n%s\n\nContexts:\n%s",
		rec.GroundTruth, numberedList(rec.Contexts))

	var verdict struct {
		ReferenceEntities []string `json:"reference_entities"`
		ContextEntities   []string `json:"context_entities"`
	}
	tokens, err := completeJSON(ctx, m.params, entityRecallSystem, user, &verdict)
	if err != nil {
		return Unavailable(err.Error())
	}
	if len(verdict.ReferenceEntities) == 0 {
		return Unavailable("reference answer contains no entities")
	}

	inContexts := make(map[string]bool, len(verdict.ContextEntities))
	for _, e := range verdict.ContextEntities {
		inContexts[normalizeEntity(e)] = true
	}

	found := 0
	for _, e := range verdict.ReferenceEntities {
		if inContexts[normalizeEntity(e)] {
			found++
		}
	}

	r := Value(float64(found) / float64(len(verdict.ReferenceEntities)))
	r.Tokens = tokens
	return r
}

func normalizeEntity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
