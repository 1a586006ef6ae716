// Package cmd contains CLI commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/instantcocoa/naxos/cli/internal/config"
)

var (
	cfg     *config.Config
	format  string
	verbose bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "naxos",
	Short: "Naxos CLI - RAG evaluation pipeline",
	Long: `Naxos evaluates RAG (retrieval-augmented generation) outputs with
LLM-judged quality metrics.

It reads a static evaluation artifact (questions, answers, retrieved
contexts and optional ground truths), scores every sample with each
configured metric, and writes an aggregated report.

Examples:
  # Evaluate a local artifact with every metric
  naxos evaluate --input testset.json --output results.json

  # Evaluate with a subset of metrics against an S3 artifact
  naxos evaluate --input s3://evals/testset.json --metrics faithfulness,answer_relevancy

  # Run from a declarative YAML definition
  naxos evaluate --config run.yaml

  # Render a saved report
  naxos report results.json
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.DefaultConfig()
		if format != "" {
			cfg.Format = format
		}
		cfg.Verbose = verbose
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&format, "output-format", "o", "", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd prints version info.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("naxos version 0.1.0")
	},
}
