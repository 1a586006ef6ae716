package metrics

import (
	"context"
	"fmt"

	"github.com/instantcocoa/naxos/services/dataset"
)

const correctnessSystem = `You are an evaluator comparing an answer against a reference answer.
Classify the answer's factual statements: "tp" statements present in both answer and reference, "fp" statements in the answer but not the reference, "fn" reference statements missing from the answer.
Respond with a single JSON object: {"tp": <count>, "fp": <count>, "fn": <count>}.`

// Factual agreement dominates the blend; similarity breaks ties between
// answers with the same statement counts.
const (
	correctnessFactualWeight  = 0.75
	correctnessSemanticWeight = 0.25
)

// AnswerCorrectness measures agreement with the reference answer as a
// weighted blend of statement-level F1 and embedding similarity.
type AnswerCorrectness struct {
	params JudgeParams
}

// NewAnswerCorrectness creates the answer correctness metric.
func NewAnswerCorrectness(p JudgeParams) *AnswerCorrectness {
	return &AnswerCorrectness{params: p}
}

func (m *AnswerCorrectness) Name() string {
	return "answer_correctness"
}

func (m *AnswerCorrectness) Score(ctx context.Context, ds *dataset.Dataset) ([]Result, error) {
	results := make([]Result, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		results[i] = m.scoreSample(ctx, ds.Record(i))
	}
	return results, nil
}

func (m *AnswerCorrectness) scoreSample(ctx context.Context, rec dataset.Record) Result {
	if rec.GroundTruth == "" {
		return Unavailable("no ground truth")
	}
	if rec.Answer == "" {
		return Unavailable("empty answer")
	}

	user := fmt.Sprintf("Question:\n%s\n\nAnswer:\n%s\n\nReference answer:\n%s",
		rec.Question, rec.Answer, rec.GroundTruth)

	var verdict struct {
		TP int `json:"tp"`
		FP int `json:"fp"`
		FN int `json:"fn"`
	}
	tokens, err := completeJSON(ctx, m.params, correctnessSystem, user, &verdict)
	if err != nil {
		return Unavailable(err.Error())
	}
	if verdict.TP < 0 || verdict.FP < 0 || verdict.FN < 0 || verdict.TP+verdict.FP+verdict.FN == 0 {
		return Unavailable("inconsistent judge verdict")
	}

	f1 := statementF1(verdict.TP, verdict.FP, verdict.FN)

	sim, err := embedPair(ctx, m.params, rec.Answer, rec.GroundTruth)
	if err != nil {
		return Unavailable(err.Error())
	}

	r := Value(correctnessFactualWeight*f1 + correctnessSemanticWeight*sim)
	r.Tokens = tokens
	return r
}

func statementF1(tp, fp, fn int) float64 {
	denom := float64(tp) + 0.5*float64(fp+fn)
	if denom == 0 {
		return 0
	}
	return float64(tp) / denom
}
