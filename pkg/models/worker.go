package models

import (
	"fmt"
	"time"
)

// Worker describes a specialized dev agent reachable over HTTP.
type Worker struct {
	// Key is the unique registry key, e.g. "frontend".
	Key string `json:"key" yaml:"key"`
	// Name is the human-readable name of the worker.
	Name string `json:"name" yaml:"name"`
	// Port is the local port the worker listens on.
	Port int `json:"port" yaml:"port"`
	// Endpoint is the base URL of the worker. Derived from Port when empty.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Description says what kind of work the worker handles.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Keywords is the profile used to classify tasks toward this worker.
	Keywords []string `json:"keywords" yaml:"keywords"`
	// Capabilities lists the tools or skills the worker advertises.
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	// CreatedAt is when the worker was registered.
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// BaseURL returns the endpoint to dial, deriving it from the port
// when no explicit endpoint was configured.
func (w Worker) BaseURL() string {
	if w.Endpoint != "" {
		return w.Endpoint
	}
	return fmt.Sprintf("http://localhost:%d", w.Port)
}

// GeneralWorkerKey is the sentinel returned by classification when no
// registered worker matches a task. It never names a real worker.
const GeneralWorkerKey = "general"
