package orchestrator

import (
	"testing"

	"github.com/albedolabs/albedo/pkg/models"
)

func twoWorkerFleet() []models.Worker {
	return []models.Worker{
		{Key: "frontend", Name: "Frontend", Port: 3001, Keywords: []string{"react", "css"}},
		{Key: "backend", Name: "Backend", Port: 3002, Keywords: []string{"api", "server"}},
	}
}

func TestClassifyAgainst(t *testing.T) {
	tests := []struct {
		name        string
		workers     []models.Worker
		title       string
		description string
		wantKey     string
		wantScore   int
	}{
		{
			"backend beats frontend on keyword count",
			twoWorkerFleet(),
			"Build REST API for users",
			"uses Flask server",
			"backend", 2,
		},
		{
			"no match falls back to general",
			twoWorkerFleet(),
			"Update favicon",
			"",
			models.GeneralWorkerKey, 0,
		},
		{
			"tie goes to the earliest registered",
			[]models.Worker{
				{Key: "alpha", Port: 3001, Keywords: []string{"widget"}},
				{Key: "beta", Port: 3002, Keywords: []string{"widget"}},
			},
			"Polish the widget",
			"",
			"alpha", 1,
		},
		{
			"case insensitive matching",
			twoWorkerFleet(),
			"BUILD THE API",
			"",
			"backend", 1,
		},
		{
			"keywords match inside description too",
			twoWorkerFleet(),
			"Style the dashboard",
			"new css for the charts",
			"frontend", 1,
		},
		{
			"substring matching is deliberate",
			[]models.Worker{
				{Key: "design", Port: 3001, Keywords: []string{"ui"}},
			},
			"Continue building the site",
			"",
			"design", 1, // "ui" sits inside "building"
		},
		{
			// Four mentions of "api" still count as one keyword hit, so
			// two distinct hits beat it.
			"repeated keyword scores once",
			[]models.Worker{
				{Key: "one", Port: 3001, Keywords: []string{"api"}},
				{Key: "two", Port: 3002, Keywords: []string{"deploy", "release"}},
			},
			"api api api api",
			"deploy the release",
			"two", 2,
		},
		{
			"empty fleet yields general",
			nil,
			"Build anything",
			"",
			models.GeneralWorkerKey, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyAgainst(tt.workers, tt.title, tt.description)
			if got.WorkerKey != tt.wantKey {
				t.Errorf("WorkerKey = %q, want %q", got.WorkerKey, tt.wantKey)
			}
			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", got.Score, tt.wantScore)
			}
			if got.General() != (tt.wantKey == models.GeneralWorkerKey) {
				t.Errorf("General() = %v for key %q", got.General(), got.WorkerKey)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	workers := []models.Worker{
		{Key: "frontend", Port: 3001, Keywords: []string{"react", "css", "component"}},
		{Key: "backend", Port: 3002, Keywords: []string{"api", "server", "endpoint"}},
		{Key: "database", Port: 3003, Keywords: []string{"sql", "schema", "migration"}},
	}

	first := ClassifyAgainst(workers, "Add an api endpoint for the react component", "schema stays unchanged")
	for i := 0; i < 100; i++ {
		got := ClassifyAgainst(workers, "Add an api endpoint for the react component", "schema stays unchanged")
		if got.WorkerKey != first.WorkerKey || got.Score != first.Score {
			t.Fatalf("run %d classified %q/%d, first run was %q/%d",
				i, got.WorkerKey, got.Score, first.WorkerKey, first.Score)
		}
	}
}

func TestClassifier_UsesRegistryOrder(t *testing.T) {
	r := testRegistry(t)
	c := NewClassifier(r)

	// The seeded fleet is frontend, backend, database. "data" appears in
	// the database profile only.
	got := c.Classify("Clean up the data import", "")
	if got.WorkerKey != "database" {
		t.Errorf("WorkerKey = %q, want %q (matched: %v)", got.WorkerKey, "database", got.Matched)
	}

	got = c.Classify("Update the favicon", "")
	if !got.General() {
		t.Errorf("WorkerKey = %q, want general", got.WorkerKey)
	}
}

func TestClassifier_ClassifyTask(t *testing.T) {
	r := testRegistry(t)
	c := NewClassifier(r)

	task := models.Task{Title: "Fix login API", Description: "the authentication middleware rejects tokens"}
	got := c.ClassifyTask(task)
	if got.WorkerKey != "backend" {
		t.Errorf("WorkerKey = %q, want %q", got.WorkerKey, "backend")
	}
	if got.Score < 3 {
		t.Errorf("Score = %d, want at least 3 (api, authentication, middleware)", got.Score)
	}
}
