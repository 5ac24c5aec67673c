package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "albedo",
	Short: "PM agent for a fleet of dev-agent workers",
	Long: `Albedo is a project-manager agent that coordinates a fleet of
specialized dev-agent workers over HTTP.

With no arguments, starts an interactive chat session with the PM agent,
which can create tasks, route them to the right worker, run batches, and
answer questions about project state.

Core capabilities:
- Classifies tasks against each worker's keyword profile
- Dispatches work to worker endpoints with retry and backoff
- Distributes batches across the fleet with bounded parallelism
- Monitors project health on a schedule and intervenes proactively
- Scaffolds and registers brand-new workers at runtime`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(dispatchCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(costsCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(versionCmd)
}
