// Package orchestrator routes tasks to a fleet of specialized dev agent
// workers.
//
// The orchestrator package provides functionality for:
//   - Worker registry: the YAML-backed source of truth for the fleet,
//     hot-reloaded when the file changes on disk
//   - Task classification: keyword scoring that picks the worker whose
//     profile best matches a task's text
//   - Dispatch: delivering a task to a worker over HTTP with retries,
//     and mapping every ending to a precise outcome
//   - Batch coordination: running many tasks across the fleet with
//     per-worker priority queues and bounded parallelism
//   - Proactive monitoring: scheduled project scans that alert on stuck
//     work and put idle capacity to use
//   - Worker lifecycle: proposing, scaffolding and registering new
//     workers behind a human approval step
//
// Example usage:
//
//	registry, err := orchestrator.OpenRegistry(path)
//	dispatcher := orchestrator.NewDispatcher(registry, store)
//	coordinator := orchestrator.NewCoordinator(registry, dispatcher, store)
//	result, err := coordinator.ExecuteTasks(ctx, taskIDs)
package orchestrator
