package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/albedolabs/albedo/internal/orchestrator"
	"github.com/albedolabs/albedo/pkg/models"
)

var dispatchWorker string

// timeRound keeps reported durations readable.
const timeRound = 100 * time.Millisecond

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <task-id>",
	Short: "Send one task to a worker",
	Long: `Classify a task and dispatch it to the matching worker.

Without --worker, the classifier picks the worker whose keyword profile
best matches the task text; a task matching nothing goes to the default
worker. The call waits for the worker to finish (up to the configured
call timeout) and reports the result.

Examples:
  albedo dispatch 42
  albedo dispatch 42 --worker backend`,
	Args: cobra.ExactArgs(1),
	RunE: runDispatch,
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchWorker, "worker", "", "Worker key (skips classification)")
}

func runDispatch(cmd *cobra.Command, args []string) error {
	taskID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("task id must be a number, got %q", args[0])
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	workerKey := dispatchWorker
	if workerKey == "" {
		task, err := app.db.GetTask(taskID)
		if err != nil {
			return err
		}
		c := orchestrator.NewClassifier(app.registry).ClassifyTask(task)
		fmt.Println(c.Reason)
		workerKey = c.WorkerKey
		if c.General() {
			first, ok := app.registry.First()
			if !ok {
				return fmt.Errorf("no workers registered")
			}
			workerKey = first.Key
			fmt.Printf("No specialist matched; routing to %s.\n", workerKey)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Dispatching task #%d to %s...\n", taskID, workerKey)
	outcome, err := app.dispatcher.Execute(ctx, taskID, workerKey)
	reportOutcome(outcome, err)
	if err != nil {
		// The detail was already rendered; exit nonzero without repeating it.
		return fmt.Errorf("dispatch failed")
	}
	return nil
}

// reportOutcome renders a dispatch result, keeping the timeout case
// visibly distinct from failure: a timed-out call has an unknown result.
func reportOutcome(outcome orchestrator.DispatchOutcome, err error) {
	if err == nil {
		printStatus("✓", fmt.Sprintf("Task #%d completed by %s in %s (now in %s)",
			outcome.TaskID, outcome.WorkerKey, outcome.Duration.Round(timeRound), models.TaskStatusReview), color.FgGreen)
		if outcome.Message != "" {
			fmt.Printf("  %s\n", outcome.Message)
		}
		if len(outcome.FilesCreated) > 0 {
			fmt.Printf("  files: %s\n", strings.Join(outcome.FilesCreated, ", "))
		}
		return
	}

	var rejected *orchestrator.RejectedError
	var timeout *orchestrator.TimeoutError
	switch {
	case errors.As(err, &rejected):
		printStatus("✗", fmt.Sprintf("Worker %s rejected the task: %s", rejected.WorkerKey, rejected.Message), color.FgRed)
	case errors.As(err, &timeout):
		printStatus("⚠", fmt.Sprintf("No answer from %s after %d attempts; the task may still be running. Check again before assuming failure.",
			timeout.WorkerKey, timeout.Attempts), color.FgYellow)
	case errors.Is(err, orchestrator.ErrWorkerUnavailable):
		printStatus("✗", fmt.Sprintf("Worker unreachable: %v. Is the worker process running?", err), color.FgRed)
	case errors.Is(err, orchestrator.ErrTaskNotFound), errors.Is(err, orchestrator.ErrWorkerNotFound):
		printStatus("✗", err.Error(), color.FgRed)
	default:
		printStatus("✗", err.Error(), color.FgRed)
	}
}
