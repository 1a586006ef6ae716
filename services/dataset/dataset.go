// Package dataset provides ingestion and validation of RAG evaluation data.
package dataset

import (
	"fmt"
)

// RawArtifact is the on-disk evaluation input: four parallel sequences
// aligned by sample index.
type RawArtifact struct {
	Questions    []string   `json:"questions" yaml:"questions"`
	Answers      []string   `json:"answers" yaml:"answers"`
	Contexts     [][]string `json:"contexts" yaml:"contexts"`
	GroundTruths []string   `json:"ground_truths" yaml:"ground_truths"`
}

// Record is a single question/answer unit.
type Record struct {
	Question    string
	Answer      string
	Contexts    []string
	GroundTruth string
}

// ValidationError describes a structural defect in the input artifact.
type ValidationError struct {
	Field    string
	Expected int
	Actual   int
}

func (e *ValidationError) Error() string {
	if e.Expected == e.Actual {
		return fmt.Sprintf("invalid evaluation input: field %q has length %d", e.Field, e.Actual)
	}
	return fmt.Sprintf("invalid evaluation input: field %q has length %d, expected %d", e.Field, e.Actual, e.Expected)
}

// Dataset is the validated, columnar collection of records for one run.
// It is immutable once built: columns are only reachable through accessors
// and scorers must not modify returned values.
type Dataset struct {
	questions    []string
	answers      []string
	contexts     [][]string
	groundTruths []string

	hasGroundTruths bool
}

// Validate checks that the artifact's sequences are evaluable: questions must
// be non-empty, and every present sequence must match its length. Missing
// sequences are not an error; they degrade to per-sample empty values so that
// metrics requiring them report unavailability instead of aborting the run.
func Validate(raw *RawArtifact) error {
	n := len(raw.Questions)
	if n == 0 {
		return &ValidationError{Field: "questions", Expected: 0, Actual: 0}
	}
	if len(raw.Answers) != 0 && len(raw.Answers) != n {
		return &ValidationError{Field: "answers", Expected: n, Actual: len(raw.Answers)}
	}
	if len(raw.Contexts) != 0 && len(raw.Contexts) != n {
		return &ValidationError{Field: "contexts", Expected: n, Actual: len(raw.Contexts)}
	}
	if len(raw.GroundTruths) != 0 && len(raw.GroundTruths) != n {
		return &ValidationError{Field: "ground_truths", Expected: n, Actual: len(raw.GroundTruths)}
	}
	return nil
}

// Build validates the artifact and assembles the columnar dataset.
// It is a structural adapter only: values are copied verbatim, in input
// order, with no trimming or normalization, so scores are reproducible
// from the literal input.
func Build(raw *RawArtifact) (*Dataset, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}

	n := len(raw.Questions)
	ds := &Dataset{
		questions:       make([]string, n),
		answers:         make([]string, n),
		contexts:        make([][]string, n),
		groundTruths:    make([]string, n),
		hasGroundTruths: len(raw.GroundTruths) == n,
	}
	copy(ds.questions, raw.Questions)
	copy(ds.answers, raw.Answers)
	copy(ds.groundTruths, raw.GroundTruths)
	for i, ctxs := range raw.Contexts {
		ds.contexts[i] = append([]string(nil), ctxs...)
	}

	return ds, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.questions)
}

// Question returns the question for sample i.
func (d *Dataset) Question(i int) string {
	return d.questions[i]
}

// Answer returns the answer for sample i. An empty string is a non-answer.
func (d *Dataset) Answer(i int) string {
	return d.answers[i]
}

// Contexts returns the retrieved passages for sample i, in retrieval order.
// The returned slice is shared; callers must treat it as read-only.
func (d *Dataset) Contexts(i int) []string {
	return d.contexts[i]
}

// GroundTruth returns the reference answer for sample i.
func (d *Dataset) GroundTruth(i int) string {
	return d.groundTruths[i]
}

// HasGroundTruths reports whether the input artifact carried a
// ground_truths sequence.
func (d *Dataset) HasGroundTruths() bool {
	return d.hasGroundTruths
}

// Record returns sample i as a record.
func (d *Dataset) Record(i int) Record {
	return Record{
		Question:    d.questions[i],
		Answer:      d.answers[i],
		Contexts:    d.contexts[i],
		GroundTruth: d.groundTruths[i],
	}
}
