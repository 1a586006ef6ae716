package cmd

import (
	"github.com/spf13/cobra"

	"github.com/instantcocoa/naxos/cli/internal/output"
	"github.com/instantcocoa/naxos/services/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List available evaluation metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := metrics.DefaultRegistry(metrics.JudgeParams{})
		names := registry.Names()

		if cfg.Format == "json" || cfg.Format == "yaml" {
			w := output.NewWriter(cfg.Format)
			return w.Print(names)
		}

		descriptions := map[string]string{
			"faithfulness":          "Fraction of answer claims supported by the retrieved contexts",
			"answer_relevancy":      "Semantic similarity between the question and the answer",
			"context_precision":     "Ranking quality of retrieved contexts against the ground truth",
			"context_recall":        "Fraction of ground truth claims attributable to the contexts",
			"context_entity_recall": "Fraction of ground truth entities found in the contexts",
			"answer_similarity":     "Semantic similarity between the answer and the ground truth",
			"answer_correctness":    "Factual F1 against the ground truth blended with similarity",
		}

		table := output.Table{
			Headers: []string{"NAME", "DESCRIPTION"},
			Rows:    make([][]string, len(names)),
		}
		for i, name := range names {
			table.Rows[i] = []string{name, descriptions[name]}
		}

		w := output.NewWriter("table")
		return w.Print(table)
	},
}
