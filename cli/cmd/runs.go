package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/instantcocoa/naxos/cli/internal/output"
	"github.com/instantcocoa/naxos/services/eval"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect persisted evaluation runs",
	Long: `Commands for listing and inspecting evaluation runs stored in the
run store. Requires NAXOS_STORAGE_BACKEND=postgres; the in-memory store
does not outlive a single evaluate invocation.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evaluation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s, err := newStack(ctx, "", "", "")
		if err != nil {
			return err
		}
		defer s.Close()

		runs, total, err := s.service.ListRuns(ctx, eval.ListRunsQuery{
			Status: parseRunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return err
		}

		if cfg.Format == "json" || cfg.Format == "yaml" {
			w := output.NewWriter(cfg.Format)
			return w.Print(runs)
		}

		output.Info("Found %d runs (showing %d)", total, len(runs))

		table := output.Table{
			Headers: []string{"ID", "NAME", "STATUS", "SAMPLES", "METRICS", "CREATED"},
			Rows:    make([][]string, len(runs)),
		}
		for i, r := range runs {
			id := r.ID
			if len(id) > 8 {
				id = id[:8]
			}
			table.Rows[i] = []string{
				id,
				r.Name,
				r.Status.String(),
				fmt.Sprintf("%d", r.SampleCount),
				fmt.Sprintf("%d", len(r.Metrics)),
				r.CreatedAt.Format("2006-01-02 15:04"),
			}
		}

		w := output.NewWriter("table")
		return w.Print(table)
	},
}

var runsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get evaluation run details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s, err := newStack(ctx, "", "", "")
		if err != nil {
			return err
		}
		defer s.Close()

		run, err := s.service.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run not found: %s", args[0])
		}

		if cfg.Format == "json" || cfg.Format == "yaml" {
			w := output.NewWriter(cfg.Format)
			return w.Print(run)
		}

		output.Info("Run %s (%s)", run.Name, run.ID)
		output.Info("Status: %s", run.Status.String())
		if run.ErrorMessage != "" {
			output.Error("Error: %s", run.ErrorMessage)
		}
		return printReport(run.Report)
	},
}

func parseRunStatus(s string) eval.RunStatus {
	switch s {
	case "pending":
		return eval.RunStatusPending
	case "running":
		return eval.RunStatusRunning
	case "completed":
		return eval.RunStatusCompleted
	case "failed":
		return eval.RunStatusFailed
	default:
		return eval.RunStatusUnspecified
	}
}

func init() {
	runsListCmd.Flags().String("status", "", "Filter by status (pending, running, completed, failed)")
	runsListCmd.Flags().Int("limit", 50, "Max runs to show")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsGetCmd)
}
