package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/instantcocoa/naxos/cli/internal/output"
	"github.com/instantcocoa/naxos/pkg/config"
	"github.com/instantcocoa/naxos/services/dataset"
	"github.com/instantcocoa/naxos/services/eval"
)

var reportCmd = &cobra.Command{
	Use:   "report <uri>",
	Short: "Render a saved evaluation report",
	Long: `Report reads a previously written report artifact and renders its
per-metric summary, or per-sample rows with --samples.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		samples, _ := cmd.Flags().GetBool("samples")

		base, err := config.Load("naxos")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		source, err := dataset.ResolveSource(args[0], dataset.S3Options{
			Region:          base.AWSRegion,
			Endpoint:        base.S3Endpoint,
			AccessKeyID:     base.AWSAccessKeyID,
			SecretAccessKey: base.AWSSecretAccessKey,
		})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		body, err := source.Read(ctx)
		if err != nil {
			return fmt.Errorf("failed to read report: %w", err)
		}
		defer body.Close()

		var report eval.Report
		if err := json.NewDecoder(body).Decode(&report); err != nil {
			return fmt.Errorf("failed to parse report: %w", err)
		}

		if samples {
			return printSamples(&report)
		}
		return printReport(&report)
	},
}

// printSamples renders the per-sample score rows.
func printSamples(report *eval.Report) error {
	if cfg.Format == "json" || cfg.Format == "yaml" {
		w := output.NewWriter(cfg.Format)
		return w.Print(report.Samples)
	}

	headers := []string{"#", "QUESTION"}
	for _, m := range report.Metrics {
		headers = append(headers, m.Name)
	}

	table := output.Table{
		Headers: headers,
		Rows:    make([][]string, len(report.Samples)),
	}
	for i, row := range report.Samples {
		cells := []string{fmt.Sprintf("%d", row.Index), truncate(row.Question, 50)}
		for _, m := range report.Metrics {
			cells = append(cells, output.Score(row.Scores[m.Name]))
		}
		table.Rows[i] = cells
	}

	w := output.NewWriter("table")
	return w.Print(table)
}

// truncate shortens s to at most max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func init() {
	reportCmd.Flags().Bool("samples", false, "Show per-sample scores")
}
