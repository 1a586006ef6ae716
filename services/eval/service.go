package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/instantcocoa/naxos/services/dataset"
	"github.com/instantcocoa/naxos/services/metrics"
)

// Service orchestrates evaluation runs: it loads the input artifact,
// validates and builds the dataset, scores it with the configured metrics,
// aggregates the report and persists the result.
type Service struct {
	store    Store
	registry *metrics.Registry
	runner   *Runner
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewService creates a new evaluation service.
func NewService(store Store, registry *metrics.Registry, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		runner:   NewRunner(logger),
		logger:   logger.With("component", "eval"),
		tracer:   otel.Tracer("naxos/eval"),
	}
}

// EvaluateInput describes one evaluation run request.
type EvaluateInput struct {
	Name      string
	InputURI  string
	OutputURI string

	// Metrics selects metrics by name. Empty means every registered metric.
	Metrics []string

	// Format overrides extension-based input format detection when set.
	Format dataset.DataFormat

	Source dataset.Source
	Sink   dataset.Sink
}

// Evaluate executes a full evaluation run.
//
// The run record moves pending -> running -> completed or failed. Re-running
// the same input with the same metrics produces a new run record; nothing
// from earlier runs is consulted or reused. When the report is computed but
// writing it to the output sink fails, the returned run still carries the
// complete report and the error is a *PersistenceError so the caller can
// retry the save without re-scoring.
func (s *Service) Evaluate(ctx context.Context, input EvaluateInput) (*Run, error) {
	ctx, span := s.tracer.Start(ctx, "eval.evaluate",
		trace.WithAttributes(attribute.String("input_uri", input.InputURI)))
	defer span.End()

	names := input.Metrics
	if len(names) == 0 {
		names = s.registry.Names()
	}
	selected, err := s.registry.Select(names)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	run := &Run{
		ID:        uuid.New().String(),
		Name:      input.Name,
		InputURI:  input.InputURI,
		OutputURI: input.OutputURI,
		Metrics:   names,
		Status:    RunStatusPending,
		CreatedAt: time.Now(),
	}
	span.SetAttributes(attribute.String("run_id", run.ID))

	if err := s.store.CreateRun(ctx, run); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	now := time.Now()
	run.Status = RunStatusRunning
	run.StartedAt = &now
	if err := s.store.UpdateRun(ctx, run); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to update run: %w", err)
	}

	s.logger.InfoContext(ctx, "evaluation started",
		"run_id", run.ID, "input_uri", input.InputURI, "metrics", names)

	ds, err := s.loadDataset(ctx, input)
	if err != nil {
		return s.fail(ctx, span, run, err)
	}
	run.SampleCount = ds.Len()

	columns := s.runner.Run(ctx, ds, selected)
	run.Report = Aggregate(ds, columns)

	run.Status = RunStatusCompleted
	done := time.Now()
	run.CompletedAt = &done
	if err := s.store.UpdateRun(ctx, run); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to update run: %w", err)
	}

	s.logger.InfoContext(ctx, "evaluation completed",
		"run_id", run.ID, "samples", run.SampleCount,
		"duration", done.Sub(*run.StartedAt))

	if input.Sink != nil {
		if err := s.SaveReport(ctx, input.Sink, input.OutputURI, run.Report); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist report",
				"run_id", run.ID, "output_uri", input.OutputURI, "error", err)
			return run, err
		}
	}

	return run, nil
}

// loadDataset reads, decodes and validates the input artifact.
func (s *Service) loadDataset(ctx context.Context, input EvaluateInput) (*dataset.Dataset, error) {
	ctx, span := s.tracer.Start(ctx, "eval.load_dataset")
	defer span.End()

	body, err := input.Source.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read input %s: %w", input.InputURI, err)
	}
	defer body.Close()

	format := input.Format
	if format == dataset.DataFormatUnspecified {
		format = dataset.DetectFormat(input.InputURI)
	}

	raw, err := dataset.Decode(body, format)
	if err != nil {
		return nil, fmt.Errorf("failed to decode input %s: %w", input.InputURI, err)
	}

	ds, err := dataset.Build(raw)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("samples", ds.Len()))
	return ds, nil
}

// SaveReport writes the report to the sink as indented JSON.
func (s *Service) SaveReport(ctx context.Context, sink dataset.Sink, uri string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return &PersistenceError{URI: uri, Err: err}
	}
	data = append(data, '\n')

	if err := sink.Write(ctx, bytes.NewReader(data)); err != nil {
		return &PersistenceError{URI: uri, Err: err}
	}
	return nil
}

// GetRun retrieves an evaluation run by ID.
func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns evaluation runs matching the query.
func (s *Service) ListRuns(ctx context.Context, query ListRunsQuery) ([]*Run, int, error) {
	runs, total, err := s.store.ListRuns(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, total, nil
}

// fail marks the run failed and records the error. The original error is
// returned so callers see the cause, not the bookkeeping.
func (s *Service) fail(ctx context.Context, span trace.Span, run *Run, cause error) (*Run, error) {
	span.SetStatus(codes.Error, cause.Error())

	run.Status = RunStatusFailed
	run.ErrorMessage = cause.Error()
	now := time.Now()
	run.CompletedAt = &now

	if err := s.store.UpdateRun(ctx, run); err != nil {
		s.logger.ErrorContext(ctx, "failed to record run failure", "run_id", run.ID, "error", err)
	}

	s.logger.ErrorContext(ctx, "evaluation failed", "run_id", run.ID, "error", cause)
	return run, cause
}
