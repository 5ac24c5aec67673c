package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/albedolabs/albedo/internal/notify"
)

var serveOnce bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the proactive project monitor",
	Long: `Run the proactive monitor loop.

On every scan interval the monitor evaluates each active project for
overdue tasks, stale blocked work, unassigned urgent work, idle capacity
and backlog growth. Alert conditions are delivered as notifications;
idle and backlog conditions can auto-assign work to the fleet.

Findings go to the log and to daily markdown files under
.albedo/findings/.

Examples:
  albedo serve          # loop until interrupted
  albedo serve --once   # one scan cycle, print findings, exit`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveOnce, "once", false, "Run a single scan cycle and exit")
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	// Pick up external registry edits while the monitor runs.
	if err := app.registry.Watch(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: registry watch unavailable: %v\n", err)
	}

	outbox, err := notify.NewOutbox(filepath.Join(app.root, ".albedo", "findings"))
	if err != nil {
		return fmt.Errorf("open findings outbox: %w", err)
	}
	notifier := notify.Multi(notify.LogNotifier{}, outbox)

	monitor, err := app.buildMonitor(notifier)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveOnce {
		findings, err := monitor.Scan(ctx)
		if err != nil {
			return err
		}
		if len(findings) == 0 {
			fmt.Println("All projects healthy; nothing to report.")
			return nil
		}
		for _, f := range findings {
			fmt.Println(f.Render())
		}
		return nil
	}

	fmt.Printf("Monitoring active projects every %s. Ctrl+C to stop.\n", monitor.Interval())
	if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
