package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cuemby/taskforge/internal/config"
	"github.com/cuemby/taskforge/internal/resultindex"
	"github.com/cuemby/taskforge/pkg/locks"
	"github.com/cuemby/taskforge/pkg/queue"
	"github.com/cuemby/taskforge/pkg/safevcs"
	"github.com/cuemby/taskforge/pkg/sandbox"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the target repo, handoff directory, and sandbox engine are ready",
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().Bool("rebuild-index", false, "Rebuild the result index from results/*.json before reporting")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	rebuildIndex, _ := cmd.Flags().GetBool("rebuild-index")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[FAIL] config: %v\n", err)
		return err
	}
	fmt.Printf("[ OK ] config loaded from %s\n", cfgPath)

	ctx := context.Background()

	repo := safevcs.New(0)
	if repo.IsRepo(ctx, cfg.RepoPath) {
		fmt.Printf("[ OK ] repo_path %s is a git working tree\n", cfg.RepoPath)
	} else {
		fmt.Printf("[FAIL] repo_path %s is not a git working tree\n", cfg.RepoPath)
	}

	q, err := queue.Open(cfg.HandoffRoot)
	if err != nil {
		fmt.Printf("[FAIL] handoff_root %s: %v\n", cfg.HandoffRoot, err)
	} else {
		fmt.Printf("[ OK ] handoff_root %s ready (tasks/ running/ results/ patches/ logs/ locks/ tmp/)\n", q.Path())

		if held, rec := inspectWorkerLock(q.LocksPath()); held {
			stale := locks.IsStale(rec)
			if stale {
				fmt.Printf("[WARN] worker lock held by stale pid %d on %s (will be reclaimed on next run)\n", rec.PID, rec.Host)
			} else {
				fmt.Printf("[ OK ] worker lock held by live pid %d on %s\n", rec.PID, rec.Host)
			}
		} else {
			fmt.Println("[ OK ] worker lock not held")
		}

		if rebuildIndex {
			idx, err := resultindex.Open(cfg.HandoffRoot)
			if err != nil {
				fmt.Printf("[FAIL] open result index: %v\n", err)
			} else {
				n, err := idx.Rebuild(filepath.Join(q.Path(), queue.DirResults))
				idx.Close()
				if err != nil {
					fmt.Printf("[FAIL] rebuild result index: %v\n", err)
				} else {
					fmt.Printf("[ OK ] result index rebuilt from %d result files\n", n)
				}
			}
		}
	}

	runner, err := sandbox.NewRunner(cfg.Sandbox.SocketPath)
	if err != nil {
		fmt.Printf("[FAIL] connect to sandbox engine at %s: %v\n", cfg.Sandbox.SocketPath, err)
		return nil
	}
	defer runner.Close()

	if runner.IsEngineAvailable(ctx) {
		fmt.Printf("[ OK ] sandbox engine reachable at %s\n", cfg.Sandbox.SocketPath)
	} else {
		fmt.Printf("[FAIL] sandbox engine not reachable at %s\n", cfg.Sandbox.SocketPath)
		return nil
	}

	if runner.IsImageAvailable(ctx, cfg.Sandbox.Image) {
		fmt.Printf("[ OK ] sandbox image %s present\n", cfg.Sandbox.Image)
	} else {
		fmt.Printf("[FAIL] sandbox image %s not present (pull it before running)\n", cfg.Sandbox.Image)
	}

	return nil
}

func inspectWorkerLock(locksDir string) (bool, locks.Record) {
	rec, held, err := locks.InspectWorker(locksDir)
	if err != nil {
		return false, locks.Record{}
	}
	return held, rec
}
