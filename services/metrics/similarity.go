package metrics

import (
	"context"

	"github.com/instantcocoa/naxos/services/dataset"
)

// AnswerSimilarity measures semantic closeness between the answer and
// the reference answer via embedding similarity.
type AnswerSimilarity struct {
	params JudgeParams
}

// NewAnswerSimilarity creates the answer similarity metric.
func NewAnswerSimilarity(p JudgeParams) *AnswerSimilarity {
	return &AnswerSimilarity{params: p}
}

func (m *AnswerSimilarity) Name() string {
	return "answer_similarity"
}

func (m *AnswerSimilarity) Score(ctx context.Context, ds *dataset.Dataset) ([]Result, error) {
	results := make([]Result, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		switch {
		case ds.GroundTruth(i) == "":
			results[i] = Unavailable("no ground truth")
		case ds.Answer(i) == "":
			results[i] = Unavailable("empty answer")
		default:
			sim, err := embedPair(ctx, m.params, ds.Answer(i), ds.GroundTruth(i))
			if err != nil {
				results[i] = Unavailable(err.Error())
			} else {
				results[i] = Value(sim)
			}
		}
	}
	return results, nil
}
