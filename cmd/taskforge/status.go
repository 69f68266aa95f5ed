package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/taskforge/internal/config"
	"github.com/cuemby/taskforge/internal/resultindex"
	"github.com/cuemby/taskforge/pkg/queue"
	"github.com/cuemby/taskforge/pkg/tasktype"
)

// summaryExitPaths lists the exit paths worth breaking out individually
// in the status summary, in the order they're printed.
var summaryExitPaths = []tasktype.ExitPath{
	tasktype.ExitCompletedSuccess,
	tasktype.ExitCompletedFailed,
	tasktype.ExitScopeViolation,
	tasktype.ExitSecretDetected,
	tasktype.ExitRepoDirty,
	tasktype.ExitBranchCheckoutFailed,
	tasktype.ExitOpencodeTimeout,
	tasktype.ExitOpencodeCrashed,
	tasktype.ExitSchemaInvalid,
	tasktype.ExitInternalError,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize pending, running, and completed tasks in the handoff directory",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("failed-only", false, "List only failed/error/secret_detected task ids")
}

// failedExitPaths is the subset of summaryExitPaths --failed-only filters
// the result listing down to.
var failedExitPaths = []tasktype.ExitPath{
	tasktype.ExitCompletedFailed,
	tasktype.ExitScopeViolation,
	tasktype.ExitSecretDetected,
	tasktype.ExitRepoDirty,
	tasktype.ExitBranchCheckoutFailed,
	tasktype.ExitOpencodeTimeout,
	tasktype.ExitOpencodeCrashed,
	tasktype.ExitSchemaInvalid,
	tasktype.ExitInternalError,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	failedOnly, _ := cmd.Flags().GetBool("failed-only")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	q, err := queue.Open(cfg.HandoffRoot)
	if err != nil {
		return fmt.Errorf("open handoff root: %w", err)
	}

	pending, err := q.ListPending()
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}

	var invalidCount int
	for _, p := range pending {
		if p.Err != nil {
			invalidCount++
		}
	}

	fmt.Printf("Handoff root: %s\n", q.Path())
	fmt.Printf("Pending tasks: %d (%d invalid)\n", len(pending), invalidCount)

	idx, err := resultindex.Open(q.Path())
	if err != nil {
		fmt.Printf("Results index: unavailable (%v)\n", err)
		return nil
	}
	defer idx.Close()

	if failedOnly {
		for _, exitPath := range failedExitPaths {
			results, err := idx.ListByExitPath(exitPath)
			if err != nil {
				return fmt.Errorf("list results for %s: %w", exitPath, err)
			}
			for _, r := range results {
				fmt.Printf("%s\t%s\n", r.TaskID, exitPath)
			}
		}
		return nil
	}

	total, err := idx.Count()
	if err != nil {
		return fmt.Errorf("count indexed results: %w", err)
	}
	fmt.Printf("Indexed results: %d\n", total)

	for _, exitPath := range summaryExitPaths {
		results, err := idx.ListByExitPath(exitPath)
		if err != nil {
			return fmt.Errorf("list results for %s: %w", exitPath, err)
		}
		if len(results) > 0 {
			fmt.Printf("  %-24s %d\n", exitPath, len(results))
		}
	}

	return nil
}
