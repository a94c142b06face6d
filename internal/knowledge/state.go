package knowledge

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// State is the lifecycle state of the knowledge service.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrNotReady is returned by Query and Search before a successful Initialize.
var ErrNotReady = errors.New("knowledge base is not ready; run initialize first")

// IngestError reports the documents that failed during Initialize. The
// documents that succeeded stay committed.
type IngestError struct {
	Failed map[string]error
}

func (e *IngestError) Error() string {
	names := e.Names()
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %v", name, e.Failed[name])
	}
	noun := "documents"
	if len(names) == 1 {
		noun = "document"
	}
	return fmt.Sprintf("ingestion failed for %d %s: %s", len(names), noun, strings.Join(parts, "; "))
}

// Unwrap exposes the per-document causes to errors.Is and errors.As.
func (e *IngestError) Unwrap() []error {
	names := e.Names()
	errs := make([]error, len(names))
	for i, name := range names {
		errs[i] = e.Failed[name]
	}
	return errs
}

// Names returns the failed document names, sorted.
func (e *IngestError) Names() []string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IngestReport summarizes one Initialize run.
type IngestReport struct {
	RunID     string        `json:"run_id,omitempty"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Removed   int           `json:"removed"`
	Failed    int           `json:"failed"`
	Chunks    int           `json:"chunks"`
	Duration  time.Duration `json:"duration"`
}

// UpToDate reports whether the run was a no-op on an already ready service.
func (r *IngestReport) UpToDate() bool {
	return r.RunID == ""
}

func (r *IngestReport) String() string {
	if r.UpToDate() {
		return "Knowledge base already initialized"
	}
	return fmt.Sprintf("Processed %d documents (%d chunks), skipped %d unchanged, removed %d, failed %d in %s",
		r.Processed, r.Chunks, r.Skipped, r.Removed, r.Failed, r.Duration.Round(time.Millisecond))
}

// Status is a snapshot of the service for the status endpoint.
type Status struct {
	State         State             `json:"state"`
	Documents     int               `json:"documents"`
	Chunks        int               `json:"chunks"`
	LastIngestion *time.Time        `json:"last_ingestion,omitempty"`
	LastReport    *IngestReport     `json:"last_report,omitempty"`
	Failures      map[string]string `json:"failures,omitempty"`
}
