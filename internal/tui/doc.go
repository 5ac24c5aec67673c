// Package tui provides the terminal dashboard for the Albedo serve loop.
//
// The dashboard is a read-only view of a running fleet. It shows:
//   - Worker health, refreshed on an interval (and on demand with 'r')
//   - A live feed of dispatch traffic: tasks going out, outcomes coming
//     back, batch summaries and auto-assignments
//   - Monitor findings from periodic board scans, on a second tab
//   - Session token and cost totals in the footer
//
// The dashboard does not submit tasks itself; that stays with the chat
// and CLI surfaces. Users can only quit with 'q' or Ctrl+C.
//
// Usage:
//
//	program, _ := tui.NewDashboardProgram(
//	    tui.WithFleetSource(dispatcher.FleetHealth),
//	    tui.WithUsageSource(sessionUsage),
//	)
//	go program.Run()
//
//	// Forward orchestrator events
//	for ev := range emitter.Events() {
//	    program.Send(tui.EventMsg{Event: ev})
//	}
//
// Events typed as monitor findings land on the findings tab; everything
// else lands in the dispatch feed.
package tui
