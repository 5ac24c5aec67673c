package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/albedolabs/albedo/internal/orchestrator"
	"github.com/albedolabs/albedo/pkg/models"
)

var (
	addKey         string
	addName        string
	addPort        int
	addDescription string
	addKeywords    []string
	addPreset      string
	addYes         bool
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Manage the dev-agent worker fleet",
}

var workersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered workers",
	RunE:  runWorkersList,
}

var workersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Propose and register a new worker",
	Long: `Propose a new worker, review the plan, and register it.

A new worker needs a unique key, a free port in the reserved range, and a
keyword profile so the classifier can route tasks to it. Registration
scaffolds a runnable worker directory from the template and persists the
registry entry.

Examples:
  albedo workers add --preset testing
  albedo workers add --key docs --name "Docs Writer" \
    --keywords documentation,readme,changelog`,
	RunE: runWorkersAdd,
}

var workersHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe every worker's health endpoint",
	RunE:  runWorkersHealth,
}

func init() {
	workersAddCmd.Flags().StringVar(&addKey, "key", "", "Unique worker key, e.g. docs")
	workersAddCmd.Flags().StringVar(&addName, "name", "", "Human-readable worker name")
	workersAddCmd.Flags().IntVar(&addPort, "port", 0, "Listening port (0 picks the lowest free port)")
	workersAddCmd.Flags().StringVar(&addDescription, "description", "", "What the worker handles")
	workersAddCmd.Flags().StringSliceVar(&addKeywords, "keywords", nil, "Comma-separated keyword profile")
	workersAddCmd.Flags().StringVar(&addPreset, "preset", "", "Use a built-in preset (testing, devops, security, mobile)")
	workersAddCmd.Flags().BoolVarP(&addYes, "yes", "y", false, "Skip the confirmation prompt")

	workersCmd.AddCommand(workersListCmd)
	workersCmd.AddCommand(workersAddCmd)
	workersCmd.AddCommand(workersHealthCmd)
}

func runWorkersList(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	workers := app.registry.List()
	if len(workers) == 0 {
		fmt.Println("No workers registered.")
		return nil
	}

	for _, w := range workers {
		fmt.Printf("%-10s %-22s port %d\n", w.Key, w.Name, w.Port)
		if w.Description != "" {
			fmt.Printf("           %s\n", w.Description)
		}
		fmt.Printf("           keywords: %s\n", strings.Join(w.Keywords, ", "))
	}
	return nil
}

func runWorkersAdd(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	proposal, err := proposeFromFlags(app)
	if err != nil {
		return err
	}

	fmt.Println(proposal.Summary)
	if !addYes {
		fmt.Print("Register this worker? [y/N] ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() || !strings.EqualFold(strings.TrimSpace(scanner.Text()), "y") {
			fmt.Println("Declined; nothing registered.")
			return app.lifecycle.Decline(proposal.ID)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	worker, err := app.lifecycle.Confirm(ctx, proposal.ID)
	if err != nil {
		printStatus("✗", "Registration failed", color.FgRed)
		return err
	}

	printStatus("✓", fmt.Sprintf("Registered %s on port %d", worker.Key, worker.Port), color.FgGreen)
	fmt.Printf("Scaffolded worker directory under %s\n", app.cfg.Workers.Dir)
	return nil
}

func proposeFromFlags(app *app) (orchestrator.Proposal, error) {
	if addPreset != "" {
		return app.lifecycle.ProposePreset(addPreset)
	}
	if addKey == "" {
		return orchestrator.Proposal{}, fmt.Errorf("either --preset or --key is required")
	}
	name := addName
	if name == "" {
		name = capitalize(addKey) + " Developer"
	}
	return app.lifecycle.Propose(models.Worker{
		Key:         addKey,
		Name:        name,
		Port:        addPort,
		Description: addDescription,
		Keywords:    addKeywords,
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func runWorkersHealth(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	statuses := app.dispatcher.FleetHealth(ctx)
	healthy := 0
	for _, s := range statuses {
		if s.Healthy {
			healthy++
			printStatus("✓", fmt.Sprintf("%s (port %d) healthy, %s", s.WorkerKey, s.Port, s.Latency.Round(time.Millisecond)), color.FgGreen)
		} else {
			printStatus("✗", fmt.Sprintf("%s (port %d) %s", s.WorkerKey, s.Port, s.Detail), color.FgRed)
		}
	}
	fmt.Printf("\n%d/%d workers healthy\n", healthy, len(statuses))
	return nil
}
