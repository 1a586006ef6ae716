package cmd

import (
	"context"
	"fmt"

	"github.com/instantcocoa/naxos/pkg/cache"
	pkgconfig "github.com/instantcocoa/naxos/pkg/config"
	"github.com/instantcocoa/naxos/pkg/database"
	"github.com/instantcocoa/naxos/pkg/telemetry"
	"github.com/instantcocoa/naxos/services/dataset"
	"github.com/instantcocoa/naxos/services/eval"
	"github.com/instantcocoa/naxos/services/judge"
	"github.com/instantcocoa/naxos/services/metrics"
)

// stack holds the wired components behind one CLI invocation.
type stack struct {
	base      *pkgconfig.Base
	telemetry *telemetry.Provider
	service   *eval.Service
	closers   []func() error
}

// newStack builds the evaluation stack from environment configuration,
// with judge settings optionally overridden by flags.
func newStack(ctx context.Context, judgeBackend, judgeModel, judgeEmbedModel string) (*stack, error) {
	base, err := pkgconfig.Load("naxos")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if judgeBackend != "" {
		base.JudgeBackend = pkgconfig.JudgeBackend(judgeBackend)
	}
	if judgeModel != "" {
		base.JudgeModel = judgeModel
	}
	if judgeEmbedModel != "" {
		base.JudgeEmbedModel = judgeEmbedModel
	}

	logLevel := base.LogLevel
	if verbose {
		logLevel = "debug"
	}

	tp, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:     "naxos",
		ServiceVersion:  base.Version,
		Environment:     base.Environment,
		OTLPEndpoint:    base.OTLPEndpoint,
		TracingEnabled:  base.TracingEnabled,
		TracingSampling: base.TracingSampling,
		LogLevel:        logLevel,
		LogFormat:       base.LogFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup telemetry: %w", err)
	}

	s := &stack{base: base, telemetry: tp}
	s.closers = append(s.closers, func() error { return tp.Shutdown(ctx) })

	client, err := s.newJudge(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	registry := metrics.DefaultRegistry(metrics.JudgeParams{
		Client:     client,
		Model:      base.JudgeModel,
		EmbedModel: base.JudgeEmbedModel,
	})

	store, err := s.newStore(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.service = eval.NewService(store, registry, tp.Logger())
	return s, nil
}

func (s *stack) newJudge(ctx context.Context) (judge.Client, error) {
	registry := judge.NewRegistry()
	registry.Register(judge.NewOllamaClient(s.base.OllamaURL))

	opts := []judge.BedrockOption{}
	if s.base.AWSSessionToken != "" {
		opts = append(opts, judge.WithSessionToken(s.base.AWSSessionToken))
	}
	if s.base.JudgeBackend == pkgconfig.JudgeBedrock && s.base.JudgeRateLimit > 0 {
		redis, err := cache.ConnectURL(ctx, s.base.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis for rate limiting: %w", err)
		}
		s.closers = append(s.closers, redis.Close)

		windowSecs := int(s.base.JudgeRateWindow.Seconds())
		if windowSecs < 1 {
			windowSecs = 1
		}
		limiter := judge.NewRedisLimiter(redis, "bedrock", s.base.JudgeRateLimit, windowSecs)
		opts = append(opts, judge.WithLimiter(limiter))
	}
	registry.Register(judge.NewBedrockClient(
		s.base.AWSAccessKeyID, s.base.AWSSecretAccessKey, s.base.AWSRegion, opts...))

	client, ok := registry.Get(string(s.base.JudgeBackend))
	if !ok {
		return nil, fmt.Errorf("unknown judge backend: %s", s.base.JudgeBackend)
	}
	if !client.Available(ctx) {
		return nil, fmt.Errorf("judge backend %s is not available", client.Name())
	}
	return client, nil
}

func (s *stack) newStore(ctx context.Context) (eval.Store, error) {
	if !s.base.UsePostgresStorage() {
		return eval.NewMemoryStore(), nil
	}

	db, err := database.ConnectDSN(ctx, s.base.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s.closers = append(s.closers, db.Close)

	return eval.NewPostgresStore(ctx, db.WithLogger(s.telemetry.Logger()))
}

// s3Options returns artifact access options for S3 URIs.
func (s *stack) s3Options() dataset.S3Options {
	return dataset.S3Options{
		Region:          s.base.AWSRegion,
		Endpoint:        s.base.S3Endpoint,
		AccessKeyID:     s.base.AWSAccessKeyID,
		SecretAccessKey: s.base.AWSSecretAccessKey,
	}
}

// Close releases stack resources in reverse order.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}
