package metrics

import (
	"context"

	"github.com/instantcocoa/naxos/services/dataset"
)

// AnswerRelevancy measures how directly the answer addresses the question,
// as embedding similarity between the two.
type AnswerRelevancy struct {
	params JudgeParams
}

// NewAnswerRelevancy creates the answer relevancy metric.
func NewAnswerRelevancy(p JudgeParams) *AnswerRelevancy {
	return &AnswerRelevancy{params: p}
}

func (m *AnswerRelevancy) Name() string {
	return "answer_relevancy"
}

func (m *AnswerRelevancy) Score(ctx context.Context, ds *dataset.Dataset) ([]Result, error) {
	results := make([]Result, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		if ds.Answer(i) == "" {
			results[i] = Unavailable("empty answer")
			continue
		}

		sim, err := embedPair(ctx, m.params, ds.Question(i), ds.Answer(i))
		if err != nil {
			results[i] = Unavailable(err.Error())
			continue
		}
		results[i] = Value(sim)
	}
	return results, nil
}
