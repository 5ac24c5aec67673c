package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/albedolabs/albedo/internal/notify"
	"github.com/albedolabs/albedo/internal/orchestrator"
	"github.com/albedolabs/albedo/internal/tui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live fleet dashboard",
	Long: `Open the live dashboard: fleet health, the dispatch feed, monitor
findings and the session spend footer.

The proactive monitor runs in the background while the dashboard is open,
so findings stream in as they happen. Press q to quit.`,
	RunE: runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.registry.Watch(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: registry watch unavailable: %v\n", err)
	}

	ledger, err := app.openLedger()
	if err != nil {
		return err
	}

	// Rebuild the coordinator with an emitter so dispatch traffic shows up
	// in the feed; the plain one from newApp stays silent.
	emitter := orchestrator.NewEventEmitter(100)
	coordinator := orchestrator.NewCoordinator(app.registry, app.dispatcher, app.db,
		orchestrator.WithMaxParallel(app.cfg.Workers.MaxParallel),
		orchestrator.WithCoordinatorEvents(emitter),
	)
	app.coordinator = coordinator

	outbox, err := notify.NewOutbox(filepath.Join(app.root, ".albedo", "findings"))
	if err != nil {
		return fmt.Errorf("open findings outbox: %w", err)
	}
	monitor, err := app.buildMonitor(outbox, orchestrator.WithMonitorEvents(emitter))
	if err != nil {
		return err
	}

	dailyBudget, _ := ledger.Budgets()
	usage := func() tui.Usage {
		day, err := ledger.Day(time.Now())
		if err != nil {
			return tui.Usage{DailyBudgetUSD: dailyBudget}
		}
		u := tui.Usage{CostUSD: day.Summary.CostUSD, DailyBudgetUSD: dailyBudget}
		for _, rec := range day.Calls {
			u.TokensIn += rec.TokensIn
			u.TokensOut += rec.TokensOut
		}
		return u
	}

	opts := []tui.DashboardOption{
		tui.WithFleetSource(app.dispatcher.FleetHealth),
		tui.WithUsageSource(usage),
	}
	if app.cfg.TUI.RefreshRate > 0 {
		opts = append(opts, tui.WithRefreshInterval(app.cfg.TUI.RefreshRate))
	}
	program, _ := tui.NewDashboardProgram(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Monitor scans in the background; its findings and the coordinator's
	// dispatch events stream into the dashboard.
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		monitor.Run(ctx)
	}()
	forwardDone := make(chan struct{})
	go func() {
		defer close(forwardDone)
		for ev := range emitter.Events() {
			program.Send(tui.EventMsg{Event: ev})
		}
	}()

	_, err = program.Run()

	// Stop the producer before closing the emitter, then let the
	// forwarder drain what is left in the buffer.
	cancel()
	<-monitorDone
	emitter.Close()
	<-forwardDone
	return err
}
