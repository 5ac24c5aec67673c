package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/albedolabs/albedo/internal/config"
	"github.com/albedolabs/albedo/internal/orchestrator"
	"github.com/albedolabs/albedo/internal/state"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize an Albedo project",
	Long: `Initialize a directory for use with Albedo.

This command sets up everything needed to run Albedo:
  - Creates the .albedo directory structure (config, logs, costs)
  - Creates and migrates the project state database
  - Seeds the worker registry with the default fleet
  - Lays down the worker scaffold template

The directory argument is optional and defaults to the current directory.

Examples:
  albedo init              # Initialize current directory
  albedo init ./myproject  # Initialize specific directory
  albedo init --force      # Reinitialize even if already set up`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}
	if err := os.Chdir(absPath); err != nil {
		return fmt.Errorf("changing to directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing Albedo in %s...\n\n", absPath)

	albedoDir := filepath.Join(absPath, ".albedo")
	if _, err := os.Stat(albedoDir); err == nil && !initForce {
		fmt.Printf("Directory already initialized. Use --force to reinitialize.\n")
		return nil
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	for _, sub := range []string{"logs", "costs"} {
		if err := os.MkdirAll(filepath.Join(albedoDir, sub), 0755); err != nil {
			return fmt.Errorf("creating .albedo/%s directory: %w", sub, err)
		}
	}
	printStatus("✓", "Created .albedo directory structure", color.FgGreen)

	cfg := config.Default()

	// State database
	db, err := state.OpenProject(absPath)
	if err != nil {
		printStatus("✗", "Could not create state database", color.FgRed)
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		printStatus("✗", "Could not migrate state database", color.FgRed)
		return err
	}
	printStatus("✓", "Created project state database", color.FgGreen)

	// Worker registry, seeded with the default fleet on first open
	registry, err := orchestrator.OpenRegistry(config.ResolvePath(absPath, cfg.Workers.Registry))
	if err != nil {
		printStatus("✗", "Could not create worker registry", color.FgRed)
		return err
	}
	printStatus("✓", fmt.Sprintf("Seeded worker registry (%d workers)", registry.Len()), color.FgGreen)
	registry.Close()

	// Worker scaffold template, so 'albedo workers add' works out of the box
	workersDir := config.ResolvePath(absPath, cfg.Workers.Dir)
	templateDir := filepath.Join(workersDir, "_template")
	if _, err := os.Stat(templateDir); os.IsNotExist(err) || initForce {
		if err := orchestrator.WriteDefaultTemplate(templateDir); err != nil {
			printStatus("✗", "Could not write worker template", color.FgRed)
			return err
		}
	}
	printStatus("✓", "Created worker scaffold template", color.FgGreen)

	// Project config file
	configPath := filepath.Join(albedoDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) || initForce {
		if err := writeStarterConfig(configPath); err != nil {
			return fmt.Errorf("writing starter config: %w", err)
		}
		printStatus("✓", "Created .albedo/config.yaml", color.FgGreen)
	}

	fmt.Printf("\n%s Albedo initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	if apiKey == "" {
		fmt.Println("  1. Set your API key:")
		fmt.Println("     export ANTHROPIC_API_KEY=your-key-here")
		fmt.Println()
	}
	fmt.Println("  2. Talk to the PM agent:")
	fmt.Println("     albedo chat")
	fmt.Println()
	fmt.Println("  3. Start the proactive monitor:")
	fmt.Println("     albedo serve")
	fmt.Println()
	fmt.Println("  4. Learn more:")
	fmt.Println("     albedo --help")

	return nil
}

// writeStarterConfig lays down a commented config file with the defaults
// spelled out, so tuning does not start from a blank page.
func writeStarterConfig(path string) error {
	starter := `# Albedo project configuration.
# Every key here can also be set via ALBEDO_* environment variables.

anthropic:
  # model: claude-sonnet-4-20250514
  max_tokens: 4096
  # use_bedrock: true
  # aws_region: us-west-2

workers:
  registry: .albedo/workers.yaml
  dir: workers
  port_min: 3001
  port_max: 3010
  call_timeout: 5m
  max_attempts: 3
  max_parallel: 4

monitor:
  interval: 2h
  stale_after: 72h
  backlog_threshold: 5
  auto_assign_limit: 3
  dedupe: true
  exclusions: .albedo/exclusions.yaml

budgets:
  daily_usd: 1.00
  monthly_usd: 20.00
`
	return os.WriteFile(path, []byte(starter), 0644)
}

// printStatus prints a colored status symbol followed by a message
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
