package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Anthropic.MaxTokens != 4096 {
		t.Errorf("expected default max_tokens 4096, got %d", cfg.Anthropic.MaxTokens)
	}

	if cfg.Workers.Registry != ".albedo/workers.yaml" {
		t.Errorf("expected default registry '.albedo/workers.yaml', got %q", cfg.Workers.Registry)
	}

	if cfg.Workers.PortMin != 3001 || cfg.Workers.PortMax != 3010 {
		t.Errorf("expected default port range 3001-3010, got %d-%d", cfg.Workers.PortMin, cfg.Workers.PortMax)
	}

	if cfg.Workers.CallTimeout != 5*time.Minute {
		t.Errorf("expected default call timeout 5m, got %v", cfg.Workers.CallTimeout)
	}

	if cfg.Monitor.Interval != 2*time.Hour {
		t.Errorf("expected default monitor interval 2h, got %v", cfg.Monitor.Interval)
	}

	if cfg.Monitor.StaleAfter != 72*time.Hour {
		t.Errorf("expected default stale_after 72h, got %v", cfg.Monitor.StaleAfter)
	}

	if cfg.Monitor.AutoAssignLimit != 3 {
		t.Errorf("expected default auto_assign_limit 3, got %d", cfg.Monitor.AutoAssignLimit)
	}

	if !cfg.Monitor.Dedupe {
		t.Error("expected monitor.dedupe to default to true")
	}

	if cfg.Monitor.SensitiveGuard {
		t.Error("expected monitor.sensitive_guard to default to false")
	}

	if cfg.Budgets.DailyUSD != 1.0 {
		t.Errorf("expected default daily budget 1.0, got %v", cfg.Budgets.DailyUSD)
	}

	if cfg.Budgets.MonthlyUSD != 20.0 {
		t.Errorf("expected default monthly budget 20.0, got %v", cfg.Budgets.MonthlyUSD)
	}

	if cfg.TUI.RefreshRate != 10*time.Second {
		t.Errorf("expected refresh rate 10s, got %v", cfg.TUI.RefreshRate)
	}
}

func TestLoadFromPath(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
  model: claude-haiku-4-5-20251001
  max_tokens: 2048
workers:
  registry: fleet/workers.yaml
  dir: fleet
  call_timeout: 2m
  max_parallel: 2
monitor:
  interval: 30m
  stale_after: 24h
  backlog_threshold: 10
  dedupe: false
  sensitive_guard: true
budgets:
  daily_usd: 2.5
tui:
  refresh_rate: 200ms
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Anthropic.APIKey)
	}

	if cfg.Anthropic.Model != "claude-haiku-4-5-20251001" {
		t.Errorf("expected model override, got %q", cfg.Anthropic.Model)
	}

	if cfg.Anthropic.MaxTokens != 2048 {
		t.Errorf("expected max_tokens 2048, got %d", cfg.Anthropic.MaxTokens)
	}

	if cfg.Workers.Registry != "fleet/workers.yaml" {
		t.Errorf("expected registry 'fleet/workers.yaml', got %q", cfg.Workers.Registry)
	}

	if cfg.Workers.CallTimeout != 2*time.Minute {
		t.Errorf("expected call timeout 2m, got %v", cfg.Workers.CallTimeout)
	}

	if cfg.Workers.MaxParallel != 2 {
		t.Errorf("expected max_parallel 2, got %d", cfg.Workers.MaxParallel)
	}

	if cfg.Monitor.Interval != 30*time.Minute {
		t.Errorf("expected monitor interval 30m, got %v", cfg.Monitor.Interval)
	}

	if cfg.Monitor.StaleAfter != 24*time.Hour {
		t.Errorf("expected stale_after 24h, got %v", cfg.Monitor.StaleAfter)
	}

	if cfg.Monitor.BacklogThreshold != 10 {
		t.Errorf("expected backlog_threshold 10, got %d", cfg.Monitor.BacklogThreshold)
	}

	if cfg.Monitor.Dedupe {
		t.Error("expected monitor.dedupe to be false")
	}

	if !cfg.Monitor.SensitiveGuard {
		t.Error("expected monitor.sensitive_guard to be true")
	}

	if cfg.Budgets.DailyUSD != 2.5 {
		t.Errorf("expected daily budget 2.5, got %v", cfg.Budgets.DailyUSD)
	}

	if cfg.TUI.RefreshRate != 200*time.Millisecond {
		t.Errorf("expected refresh rate 200ms, got %v", cfg.TUI.RefreshRate)
	}
}

func TestLoadFromPath_PartialKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
monitor:
  interval: 15m
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Monitor.Interval != 15*time.Minute {
		t.Errorf("expected overridden interval 15m, got %v", cfg.Monitor.Interval)
	}

	// Untouched keys keep their defaults.
	if cfg.Monitor.BacklogThreshold != 5 {
		t.Errorf("expected default backlog_threshold 5, got %d", cfg.Monitor.BacklogThreshold)
	}

	if !cfg.Monitor.Dedupe {
		t.Error("expected monitor.dedupe to keep its default true")
	}

	if cfg.Workers.PortMin != 3001 {
		t.Errorf("expected default port_min 3001, got %d", cfg.Workers.PortMin)
	}

	if cfg.Budgets.MonthlyUSD != 20.0 {
		t.Errorf("expected default monthly budget 20.0, got %v", cfg.Budgets.MonthlyUSD)
	}
}

func TestExpandEnv(t *testing.T) {
	// Set environment variable
	os.Setenv("TEST_VAR", "expanded-value")
	defer os.Unsetenv("TEST_VAR")

	result := expandEnv("${TEST_VAR}")
	if result != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", result)
	}

	result = expandEnv("prefix-${TEST_VAR}-suffix")
	if result != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", result)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	// Test with XDG_CONFIG_HOME set
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := getUserConfigDir()
	expected := "/custom/config/albedo"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}

func TestFindProjectRootFrom(t *testing.T) {
	tmpDir := t.TempDir()

	// project/.albedo with a nested working directory below it
	projectDir := filepath.Join(tmpDir, "project")
	nestedDir := filepath.Join(projectDir, "cmd", "deep")
	if err := os.MkdirAll(filepath.Join(projectDir, ".albedo"), 0755); err != nil {
		t.Fatalf("failed to create .albedo: %v", err)
	}
	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	root, ok := findProjectRootFrom(nestedDir)
	if !ok {
		t.Fatal("expected to find project root from nested dir")
	}
	if root != projectDir {
		t.Errorf("expected root %q, got %q", projectDir, root)
	}

	root, ok = findProjectRootFrom(projectDir)
	if !ok || root != projectDir {
		t.Errorf("expected root %q from itself, got %q (found=%v)", projectDir, root, ok)
	}

	// A .albedo regular file is not a project marker.
	plainDir := filepath.Join(tmpDir, "plain")
	if err := os.MkdirAll(plainDir, 0755); err != nil {
		t.Fatalf("failed to create plain dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(plainDir, ".albedo"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write marker file: %v", err)
	}
	if root, ok := findProjectRootFrom(plainDir); ok && root == plainDir {
		t.Errorf("expected file marker to be ignored, got root %q", root)
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name     string
		root     string
		path     string
		expected string
	}{
		{"relative", "/proj", ".albedo/workers.yaml", "/proj/.albedo/workers.yaml"},
		{"absolute", "/proj", "/etc/albedo/workers.yaml", "/etc/albedo/workers.yaml"},
		{"bare name", "/proj", "workers", "/proj/workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePath(tt.root, tt.path)
			if got != tt.expected {
				t.Errorf("ResolvePath(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.expected)
			}
		})
	}
}
