package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/albedolabs/albedo/internal/agent"
	"github.com/albedolabs/albedo/internal/api"
	"github.com/albedolabs/albedo/internal/config"
	"github.com/albedolabs/albedo/internal/costs"
	"github.com/albedolabs/albedo/internal/memory"
	"github.com/albedolabs/albedo/internal/orchestrator"
	"github.com/albedolabs/albedo/internal/state"
	"github.com/anthropics/anthropic-sdk-go"
)

// app holds the wired-up components every command works against. One
// composition root so commands cannot each wire the fleet differently.
type app struct {
	cfg  *config.Config
	root string

	db          *state.DB
	registry    *orchestrator.Registry
	dispatcher  *orchestrator.Dispatcher
	coordinator *orchestrator.Coordinator
	lifecycle   *orchestrator.Lifecycle
}

// newApp loads config, opens the project state database and builds the
// orchestrator stack. Commands that need the fleet call this; init does
// not, since it creates the directories newApp expects.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	root, ok := config.FindProjectRoot()
	if !ok {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		root = cwd
	}

	if _, err := os.Stat(filepath.Join(root, ".albedo")); os.IsNotExist(err) {
		return nil, fmt.Errorf("not an Albedo project (no .albedo directory); run 'albedo init' first")
	}

	orchestrator.SetDebugLogger(orchestrator.NewDebugLoggerForDir(root))

	db, err := state.OpenProject(root)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	registry, err := orchestrator.OpenRegistry(config.ResolvePath(root, cfg.Workers.Registry))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open worker registry: %w", err)
	}

	dispatcher := orchestrator.NewDispatcher(registry, db,
		orchestrator.WithCallTimeout(cfg.Workers.CallTimeout),
		orchestrator.WithMaxAttempts(cfg.Workers.MaxAttempts),
	)
	coordinator := orchestrator.NewCoordinator(registry, dispatcher, db,
		orchestrator.WithMaxParallel(cfg.Workers.MaxParallel),
	)
	lifecycle := orchestrator.NewLifecycle(registry, config.ResolvePath(root, cfg.Workers.Dir))

	return &app{
		cfg:         cfg,
		root:        root,
		db:          db,
		registry:    registry,
		dispatcher:  dispatcher,
		coordinator: coordinator,
		lifecycle:   lifecycle,
	}, nil
}

// Close releases the registry watcher and the database handle.
func (a *app) Close() {
	if a.registry != nil {
		a.registry.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// exclusions builds the auto-assignment exclusion list with any project
// overrides merged in.
func (a *app) exclusions() (*orchestrator.ExclusionList, error) {
	list := orchestrator.NewExclusionList()
	if err := list.LoadConfig(config.ResolvePath(a.root, a.cfg.Monitor.Exclusions)); err != nil {
		return nil, err
	}
	return list, nil
}

// monitorOptions translates config into monitor options, including the
// optional sensitive-topic guard.
func (a *app) monitorOptions(notifier orchestrator.Notifier) ([]orchestrator.MonitorOption, error) {
	opts := []orchestrator.MonitorOption{
		orchestrator.WithScanInterval(a.cfg.Monitor.Interval),
		orchestrator.WithStaleAfter(a.cfg.Monitor.StaleAfter),
		orchestrator.WithBacklogThreshold(a.cfg.Monitor.BacklogThreshold),
		orchestrator.WithAutoAssignLimit(a.cfg.Monitor.AutoAssignLimit),
		orchestrator.WithDedupe(a.cfg.Monitor.Dedupe),
		orchestrator.WithNotifier(notifier),
	}
	if a.cfg.Monitor.SensitiveGuard {
		topics := orchestrator.NewSensitiveTopics()
		if err := topics.LoadConfig(config.ResolvePath(a.root, a.cfg.Monitor.SensitiveTopics)); err != nil {
			return nil, err
		}
		opts = append(opts, orchestrator.WithSensitiveTopics(topics))
	}
	return opts, nil
}

// buildMonitor assembles the proactive monitor over the shared
// coordinator, delivering findings through notifier.
func (a *app) buildMonitor(notifier orchestrator.Notifier, extra ...orchestrator.MonitorOption) (*orchestrator.Monitor, error) {
	exclusions, err := a.exclusions()
	if err != nil {
		return nil, err
	}
	opts, err := a.monitorOptions(notifier)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)
	return orchestrator.NewMonitor(a.db, a.coordinator, exclusions, opts...), nil
}

// openLedger opens the cost ledger with configured budgets.
func (a *app) openLedger() (*costs.Ledger, error) {
	return costs.NewLedger(config.ResolvePath(a.root, a.cfg.Costs.Dir),
		costs.WithBudgets(a.cfg.Budgets.DailyUSD, a.cfg.Budgets.MonthlyUSD),
	)
}

// buildAgent assembles the chat agent: API client, cost ledger, memory
// store and the PM toolset. The memory store is optional; a failure to
// open it degrades the memory tools rather than blocking chat.
func (a *app) buildAgent(onAction func(string)) (*agent.Agent, *api.Client, error) {
	apiKey, _, err := config.ResolveAPIKey(a.cfg)
	if err != nil && !a.cfg.Anthropic.UseBedrock {
		return nil, nil, err
	}

	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(a.cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: a.cfg.Anthropic.UseBedrock,
		AWSRegion:     a.cfg.Anthropic.AWSRegion,
		AWSProfile:    a.cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create API client: %w", err)
	}

	ledger, err := a.openLedger()
	if err != nil {
		return nil, nil, fmt.Errorf("open cost ledger: %w", err)
	}

	var memories *memory.Store
	if mem, err := memory.Open(config.ResolvePath(a.root, a.cfg.Memory.Path)); err == nil {
		memories = mem
	} else {
		fmt.Fprintf(os.Stderr, "warning: memory store unavailable: %v\n", err)
	}

	tools := agent.NewToolset(a.db, a.registry, a.dispatcher, a.coordinator, a.lifecycle, memories)

	opts := []agent.Option{
		agent.WithMaxTokens(int64(a.cfg.Anthropic.MaxTokens)),
		agent.WithLedger(ledger),
	}
	if onAction != nil {
		opts = append(opts, agent.WithOnAction(onAction))
	}
	return agent.New(client, tools, opts...), client, nil
}
