package tui

import (
	"time"

	"github.com/albedolabs/albedo/internal/orchestrator"
)

// EventMsg wraps an orchestrator event for the dashboard. The serve
// loop forwards emitter events into the program with Send.
type EventMsg struct {
	Event orchestrator.Event
}

// FleetStatusMsg carries the result of a fleet health sweep.
type FleetStatusMsg struct {
	Statuses []orchestrator.HealthStatus
}

// Usage is the running session spend shown in the footer.
type Usage struct {
	TokensIn  int64
	TokensOut int64
	CostUSD   float64
	// DailyBudgetUSD is the configured daily cap; zero hides the budget.
	DailyBudgetUSD float64
}

// UsageMsg updates the token and cost footer.
type UsageMsg struct {
	Usage Usage
}

// refreshTickMsg fires the periodic fleet and usage refresh.
type refreshTickMsg time.Time
