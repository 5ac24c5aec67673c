package orchestrator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/albedolabs/albedo/pkg/models"
)

// Scaffold tokens. Template files and file names may use these; they are
// expanded with the worker's values when the directory is copied.
const (
	tokenWorkerKey         = "__WORKER_KEY__"
	tokenWorkerName        = "__WORKER_NAME__"
	tokenWorkerPort        = "__WORKER_PORT__"
	tokenWorkerDescription = "__WORKER_DESCRIPTION__"
	tokenWorkerKeywords    = "__WORKER_KEYWORDS__"
)

// defaultTemplateDir is where the worker template lives unless overridden.
func defaultTemplateDir(workersDir string) string {
	return filepath.Join(workersDir, "_template")
}

// workerDir is where a worker's scaffolded files live.
func workerDir(workersDir, key string) string {
	return filepath.Join(workersDir, key+"-agent")
}

func workerReplacer(w models.Worker) *strings.Replacer {
	return strings.NewReplacer(
		tokenWorkerKey, w.Key,
		tokenWorkerName, w.Name,
		tokenWorkerPort, fmt.Sprintf("%d", w.Port),
		tokenWorkerDescription, w.Description,
		tokenWorkerKeywords, strings.Join(w.Keywords, ","),
	)
}

// scaffoldWorker copies the template tree into dir, expanding worker tokens
// in both file contents and file names, then writes the worker's
// .env.example. The destination must not already exist.
func scaffoldWorker(templateDir, dir string, w models.Worker) error {
	info, err := os.Stat(templateDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrTemplateMissing, templateDir)
	}
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("worker directory %s already exists", dir)
	}

	replace := workerReplacer(w)
	err = filepath.WalkDir(templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(templateDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, replace.Replace(rel))

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read template file %s: %w", rel, err)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		expanded := replace.Replace(string(data))
		if err := os.WriteFile(target, []byte(expanded), info.Mode().Perm()); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		return nil
	})
	if err != nil {
		removeScaffold(dir)
		return fmt.Errorf("scaffold worker %s: %w", w.Key, err)
	}

	env := renderEnvExample(w)
	if err := os.WriteFile(filepath.Join(dir, ".env.example"), []byte(env), 0644); err != nil {
		removeScaffold(dir)
		return fmt.Errorf("write .env.example: %w", err)
	}
	return nil
}

// removeScaffold deletes a scaffolded worker directory.
func removeScaffold(dir string) error {
	return os.RemoveAll(dir)
}

// renderEnvExample produces the starter environment file a new worker needs
// before it can be launched.
func renderEnvExample(w models.Worker) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s configuration (port %d)\n", w.Name, w.Port)
	fmt.Fprintf(&b, "PORT=%d\n", w.Port)
	fmt.Fprintf(&b, "WORKER_NAME=%s\n", w.Name)
	fmt.Fprintf(&b, "WORKER_SPECIALTY=%s\n", w.Key)
	fmt.Fprintf(&b, "SPECIALTY_KEYWORDS=%s\n", strings.Join(w.Keywords, ","))
	b.WriteString("\n# Provider credentials\n")
	b.WriteString("ANTHROPIC_API_KEY=your_key_here\n")
	return b.String()
}

// WriteDefaultTemplate lays down a minimal worker template: a README and a
// launch script, both token-expanded at scaffold time. init uses this so a
// fresh checkout can create workers without hand-writing a template first.
func WriteDefaultTemplate(templateDir string) error {
	if err := os.MkdirAll(templateDir, 0755); err != nil {
		return fmt.Errorf("create template directory: %w", err)
	}

	readme := `# __WORKER_NAME__

Dev agent worker for __WORKER_KEY__ tasks, listening on port __WORKER_PORT__.

__WORKER_DESCRIPTION__

Handles tasks mentioning: __WORKER_KEYWORDS__

## Endpoints

- POST /execute-task  {"task_id": <id>}
- GET  /health

Copy .env.example to .env and fill in credentials before starting.
`
	if err := os.WriteFile(filepath.Join(templateDir, "README.md"), []byte(readme), 0644); err != nil {
		return fmt.Errorf("write template README: %w", err)
	}

	run := `#!/bin/sh
# Launches the __WORKER_NAME__ on port __WORKER_PORT__.
set -e
export PORT=__WORKER_PORT__
exec "$@"
`
	if err := os.WriteFile(filepath.Join(templateDir, "run.sh"), []byte(run), 0755); err != nil {
		return fmt.Errorf("write template run script: %w", err)
	}
	return nil
}
