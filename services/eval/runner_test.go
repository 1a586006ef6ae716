package eval

import (
	"context"
	"fmt"
	"testing"

	"github.com/instantcocoa/naxos/pkg/testutil"
	"github.com/instantcocoa/naxos/services/dataset"
	"github.com/instantcocoa/naxos/services/metrics"
)

// stubMetric is a scripted metric for runner tests.
type stubMetric struct {
	name    string
	results []metrics.Result
	err     error
	panics  bool
	calls   int
}

func (s *stubMetric) Name() string { return s.name }

func (s *stubMetric) Score(ctx context.Context, ds *dataset.Dataset) ([]metrics.Result, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func testDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	raw := &dataset.RawArtifact{}
	for i := 0; i < n; i++ {
		raw.Questions = append(raw.Questions, fmt.Sprintf("q%d", i))
		raw.Answers = append(raw.Answers, fmt.Sprintf("a%d", i))
	}
	ds, err := dataset.Build(raw)
	if err != nil {
		t.Fatalf("failed to build dataset: %v", err)
	}
	return ds
}

func validColumn(scores ...float64) []metrics.Result {
	results := make([]metrics.Result, len(scores))
	for i, s := range scores {
		results[i] = metrics.Value(s)
	}
	return results
}

func TestRunner_OneColumnPerMetric(t *testing.T) {
	runner := NewRunner(testutil.DiscardLogger())
	ds := testDataset(t, 2)

	list := []metrics.Metric{
		&stubMetric{name: "m1", results: validColumn(0.5, 1.0)},
		&stubMetric{name: "m2", results: validColumn(0.0, 0.25)},
	}

	columns := runner.Run(context.Background(), ds, list)
	if len(columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(columns))
	}
	if columns[0].Name != "m1" || columns[1].Name != "m2" {
		t.Errorf("unexpected column order: %s, %s", columns[0].Name, columns[1].Name)
	}
	if columns[0].Results[1].Score != 1.0 {
		t.Errorf("unexpected score: %f", columns[0].Results[1].Score)
	}
}

func TestRunner_MetricErrorIsolated(t *testing.T) {
	runner := NewRunner(testutil.DiscardLogger())
	ds := testDataset(t, 3)

	failing := &stubMetric{name: "failing", err: fmt.Errorf("judge unreachable")}
	healthy := &stubMetric{name: "healthy", results: validColumn(1, 1, 1)}

	columns := runner.Run(context.Background(), ds, []metrics.Metric{failing, healthy})

	// The failing metric still yields a full column, all unavailable.
	if len(columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(columns))
	}
	if len(columns[0].Results) != 3 {
		t.Fatalf("expected 3 results in failed column, got %d", len(columns[0].Results))
	}
	for i, r := range columns[0].Results {
		if r.Valid {
			t.Errorf("result %d: expected unavailable", i)
		}
		if r.Reason == "" {
			t.Errorf("result %d: expected failure reason", i)
		}
	}

	// The healthy metric still ran.
	if healthy.calls != 1 {
		t.Errorf("expected healthy metric to run, got %d calls", healthy.calls)
	}
	if !columns[1].Results[0].Valid {
		t.Error("expected healthy column to be valid")
	}
}

func TestRunner_MetricPanicIsolated(t *testing.T) {
	runner := NewRunner(testutil.DiscardLogger())
	ds := testDataset(t, 2)

	panicking := &stubMetric{name: "panicking", panics: true}
	healthy := &stubMetric{name: "healthy", results: validColumn(0.5, 0.5)}

	columns := runner.Run(context.Background(), ds, []metrics.Metric{panicking, healthy})

	if len(columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(columns))
	}
	for _, r := range columns[0].Results {
		if r.Valid {
			t.Error("expected unavailable results from panicking metric")
		}
	}
	if healthy.calls != 1 {
		t.Error("expected healthy metric to run after panic")
	}
}

func TestRunner_WrongResultCount(t *testing.T) {
	runner := NewRunner(testutil.DiscardLogger())
	ds := testDataset(t, 3)

	short := &stubMetric{name: "short", results: validColumn(1.0)}
	columns := runner.Run(context.Background(), ds, []metrics.Metric{short})

	if len(columns[0].Results) != 3 {
		t.Fatalf("expected column padded to 3 results, got %d", len(columns[0].Results))
	}
	for _, r := range columns[0].Results {
		if r.Valid {
			t.Error("expected unavailable results for miscounted column")
		}
	}
}

func TestRunner_NoMetrics(t *testing.T) {
	runner := NewRunner(testutil.DiscardLogger())
	ds := testDataset(t, 1)

	columns := runner.Run(context.Background(), ds, nil)
	if len(columns) != 0 {
		t.Errorf("expected no columns, got %d", len(columns))
	}
}
