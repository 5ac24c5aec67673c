package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/albedolabs/albedo/internal/orchestrator"
	"github.com/albedolabs/albedo/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project and fleet state",
	Long: `Display the current state of every active project and the worker fleet.

Shows:
  - Per-project task counts by status
  - Overdue and blocked work
  - The registered worker fleet`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	projects, err := app.db.ListActiveProjects()
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println("No active projects. Ask the PM agent to create one: albedo chat")
	}

	now := time.Now()
	for _, p := range projects {
		if err := displayProject(app, p, now); err != nil {
			return err
		}
	}

	fmt.Println("Worker fleet:")
	workers := app.registry.List()
	if len(workers) == 0 {
		fmt.Println("  (empty registry)")
	}
	for _, w := range workers {
		fmt.Printf("  %-10s port %d  %s\n", w.Key, w.Port, w.Description)
	}
	return nil
}

func displayProject(a *app, p models.Project, now time.Time) error {
	counts, err := a.db.CountTasksByStatus(p.ID)
	if err != nil {
		return fmt.Errorf("count tasks for %s: %w", p.Name, err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	fmt.Printf("Project: %s (%d tasks)\n", p.Name, total)
	for _, s := range []models.TaskStatus{
		models.TaskStatusTodo,
		models.TaskStatusInProgress,
		models.TaskStatusBlocked,
		models.TaskStatusReview,
		models.TaskStatusDone,
	} {
		if counts[s] > 0 {
			fmt.Printf("  %-12s %d\n", s, counts[s])
		}
	}

	tasks, err := a.db.ListTasks(p.ID, orchestrator.TaskFilter{})
	if err != nil {
		return fmt.Errorf("list tasks for %s: %w", p.Name, err)
	}
	for _, t := range tasks {
		if t.Overdue(now) {
			printStatus("⚠", fmt.Sprintf("overdue: #%d %s (due %s)",
				t.ID, t.Title, t.DueDate.Format("2006-01-02")), color.FgYellow)
		}
	}
	fmt.Println()
	return nil
}
