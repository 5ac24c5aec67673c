package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

var batchDryRun bool

var batchCmd = &cobra.Command{
	Use:   "batch <task-id>...",
	Short: "Distribute and execute a batch of tasks",
	Long: `Classify a set of tasks, group them by worker, and execute the batch.

Tasks run in priority order within each worker, with bounded parallelism
across workers. One task's failure never cancels its siblings; the final
report lists every task's outcome plus aggregate counts.

Examples:
  albedo batch 12 13 17
  albedo batch 12 13 17 --dry-run   # show the distribution plan only`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "Show the distribution plan without dispatching")
}

func runBatch(cmd *cobra.Command, args []string) error {
	taskIDs := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("task id must be a number, got %q", arg)
		}
		taskIDs = append(taskIDs, id)
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if batchDryRun {
		plan, err := app.coordinator.Distribute(ctx, taskIDs)
		if err != nil {
			return err
		}
		fmt.Println(plan.Describe())
		return nil
	}

	result, err := app.coordinator.ExecuteTasks(ctx, taskIDs)
	if err != nil {
		return err
	}
	fmt.Println(result.Render())
	return nil
}
