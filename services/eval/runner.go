package eval

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/instantcocoa/naxos/services/dataset"
	"github.com/instantcocoa/naxos/services/metrics"
)

// MetricScores is one metric's per-sample result column.
type MetricScores struct {
	Name    string
	Results []metrics.Result
}

// Runner invokes each configured metric against the full dataset,
// isolating per-metric failures.
type Runner struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewRunner creates a metric runner.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{
		logger: logger.With("component", "runner"),
		tracer: otel.Tracer("naxos/eval"),
	}
}

// Run scores the dataset with every metric, one at a time, in list order.
// A failure in one metric never aborts the rest: the failing metric's
// column is recorded as entirely unavailable, carrying the failure reason,
// and the output always holds exactly one column per configured metric.
// The runner performs no retries and no caching; every invocation
// recomputes from the dataset.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset, list []metrics.Metric) []MetricScores {
	columns := make([]MetricScores, 0, len(list))
	for _, m := range list {
		r.logger.InfoContext(ctx, "scoring metric", "metric", m.Name(), "samples", ds.Len())

		results := r.invoke(ctx, ds, m)
		columns = append(columns, MetricScores{Name: m.Name(), Results: results})
	}
	return columns
}

// invoke is the isolation boundary around a single metric invocation.
func (r *Runner) invoke(ctx context.Context, ds *dataset.Dataset, m metrics.Metric) (results []metrics.Result) {
	ctx, span := r.tracer.Start(ctx, "metric.score",
		trace.WithAttributes(attribute.String("metric", m.Name())))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "metric panicked", "metric", m.Name(), "panic", rec)
			results = unavailableColumn(ds.Len(), fmt.Sprintf("metric %s panicked: %v", m.Name(), rec))
		}
	}()

	results, err := m.Score(ctx, ds)
	if err != nil {
		r.logger.ErrorContext(ctx, "metric failed", "metric", m.Name(), "error", err)
		return unavailableColumn(ds.Len(), fmt.Sprintf("metric %s failed: %v", m.Name(), err))
	}
	if len(results) != ds.Len() {
		r.logger.ErrorContext(ctx, "metric returned wrong result count",
			"metric", m.Name(), "want", ds.Len(), "got", len(results))
		return unavailableColumn(ds.Len(), fmt.Sprintf("metric %s returned %d results for %d samples", m.Name(), len(results), ds.Len()))
	}
	return results
}

func unavailableColumn(n int, reason string) []metrics.Result {
	results := make([]metrics.Result, n)
	for i := range results {
		results[i] = metrics.Unavailable(reason)
	}
	return results
}
