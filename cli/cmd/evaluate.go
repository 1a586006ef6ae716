package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cliconfig "github.com/instantcocoa/naxos/cli/internal/config"
	"github.com/instantcocoa/naxos/cli/internal/output"
	"github.com/instantcocoa/naxos/services/dataset"
	"github.com/instantcocoa/naxos/services/eval"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run an evaluation over an input artifact",
	Long: `Evaluate reads an artifact of questions, answers, retrieved contexts
and optional ground truths, scores every sample with each selected metric,
and writes the aggregated report as JSON.

Inputs may be local paths, http(s) URLs or s3:// URIs. The format is
detected from the file extension (json, jsonl, csv, parquet).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		input, _ := cmd.Flags().GetString("input")
		out, _ := cmd.Flags().GetString("output")
		metricNames, _ := cmd.Flags().GetStringSlice("metrics")
		runFile, _ := cmd.Flags().GetString("config")
		judgeBackend, _ := cmd.Flags().GetString("judge")
		judgeModel, _ := cmd.Flags().GetString("model")
		judgeEmbedModel, _ := cmd.Flags().GetString("embed-model")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if runFile != "" {
			rf, err := cliconfig.LoadRunFile(runFile)
			if err != nil {
				return err
			}
			if name == "" {
				name = rf.Name
			}
			if input == "" {
				input = rf.Input
			}
			if out == "" {
				out = rf.Output
			}
			if len(metricNames) == 0 {
				metricNames = rf.Metrics
			}
			if judgeBackend == "" {
				judgeBackend = rf.Judge.Backend
			}
			if judgeModel == "" {
				judgeModel = rf.Judge.Model
			}
			if judgeEmbedModel == "" {
				judgeEmbedModel = rf.Judge.EmbedModel
			}
		}

		if input == "" {
			return fmt.Errorf("no input artifact specified (use --input or --config)")
		}
		if name == "" {
			name = fmt.Sprintf("eval-%s", time.Now().Format("20060102-150405"))
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s, err := newStack(ctx, judgeBackend, judgeModel, judgeEmbedModel)
		if err != nil {
			return err
		}
		defer s.Close()

		source, err := dataset.ResolveSource(input, s.s3Options())
		if err != nil {
			return err
		}

		var sink dataset.Sink
		if out != "" {
			sink, err = dataset.ResolveSink(out, s.s3Options())
			if err != nil {
				return err
			}
		}

		run, err := s.service.Evaluate(ctx, eval.EvaluateInput{
			Name:      name,
			InputURI:  input,
			OutputURI: out,
			Metrics:   metricNames,
			Source:    source,
			Sink:      sink,
		})
		if err != nil {
			if _, ok := err.(*eval.PersistenceError); ok && run != nil {
				output.Error("Report computed but not saved: %v", err)
				return printReport(run.Report)
			}
			return err
		}

		output.Success("Evaluation %s completed (%d samples)", run.Name, run.SampleCount)
		if out != "" {
			output.Info("Report written to %s", out)
		}

		return printReport(run.Report)
	},
}

// printReport renders the per-metric summary.
func printReport(report *eval.Report) error {
	if report == nil {
		return nil
	}

	if cfg.Format == "json" || cfg.Format == "yaml" {
		w := output.NewWriter(cfg.Format)
		return w.Print(report)
	}

	table := output.Table{
		Headers: []string{"METRIC", "MEAN (±STD)", "VALID", "SAMPLES"},
		Rows:    make([][]string, len(report.Metrics)),
	}
	for i, m := range report.Metrics {
		table.Rows[i] = []string{
			m.Name,
			output.MeanStd(m.Mean, m.StdDev),
			fmt.Sprintf("%d", m.ValidCount),
			fmt.Sprintf("%d", len(m.Scores)),
		}
	}

	w := output.NewWriter("table")
	return w.Print(table)
}

func init() {
	evaluateCmd.Flags().String("name", "", "Run name")
	evaluateCmd.Flags().StringP("input", "i", "", "Input artifact (path, URL or s3:// URI)")
	evaluateCmd.Flags().String("output", "", "Report destination (path or s3:// URI)")
	evaluateCmd.Flags().StringSlice("metrics", nil, "Metrics to run (default: all)")
	evaluateCmd.Flags().StringP("config", "c", "", "YAML run definition")
	evaluateCmd.Flags().String("judge", "", "Judge backend (bedrock, ollama)")
	evaluateCmd.Flags().String("model", "", "Judge model override")
	evaluateCmd.Flags().String("embed-model", "", "Embedding model override")
	evaluateCmd.Flags().Duration("timeout", 30*time.Minute, "Overall run timeout")
}
