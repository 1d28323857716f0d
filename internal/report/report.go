// Package report collects per-file and per-symbol issues raised during
// a run. Issues are accumulated rather than raised: the run always
// emits whatever symbols, edges, and summaries it could produce,
// accompanied by this structured list.
package report

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies an issue class from the run taxonomy.
type Kind string

const (
	// ParseError: a file was unparsable and contributed only an error
	// symbol.
	ParseError Kind = "parse_error"
	// AmbiguousReference: multiple equally-ranked candidates matched a
	// reference; all were kept as ambiguous edges.
	AmbiguousReference Kind = "ambiguous_reference"
	// UnresolvedReference: a reference names nothing declared in the
	// analyzed set. Expected for external code.
	UnresolvedReference Kind = "unresolved_reference"
	// CycleWarning: the scheduler relaxed dependency ordering inside a
	// cycle.
	CycleWarning Kind = "cycle_warning"
	// SummarizationFailure: retries were exhausted for one symbol and a
	// placeholder summary was substituted.
	SummarizationFailure Kind = "summarization_failure"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

func (k Kind) severity() Severity {
	switch k {
	case ParseError, SummarizationFailure:
		return SeverityError
	case AmbiguousReference, CycleWarning:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Issue is one recorded problem or notable condition.
type Issue struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	SymbolID string   `json:"symbol_id,omitempty"`
	File     string   `json:"file,omitempty"`
	Detail   string   `json:"detail"`
}

// Report is the append-only, concurrency-safe issue list for one run.
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`

	mu     sync.Mutex
	issues []Issue
}

// New creates a report for a fresh run.
func New() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

// Add records one issue.
func (r *Report) Add(kind Kind, symbolID, file, detail string) {
	r.mu.Lock()
	r.issues = append(r.issues, Issue{
		Kind:     kind,
		Severity: kind.severity(),
		SymbolID: symbolID,
		File:     file,
		Detail:   detail,
	})
	r.mu.Unlock()
}

// Issues returns a copy of the recorded issues.
func (r *Report) Issues() []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Issue, len(r.issues))
	copy(out, r.issues)
	return out
}

// Counts returns the number of issues per kind.
func (r *Report) Counts() map[Kind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Kind]int)
	for _, is := range r.issues {
		counts[is.Kind]++
	}
	return counts
}

// WriteJSON serializes the report.
func (r *Report) WriteJSON(w io.Writer) error {
	issues := r.Issues()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		RunID     string    `json:"run_id"`
		StartedAt time.Time `json:"started_at"`
		Issues    []Issue   `json:"issues"`
	}{r.RunID, r.StartedAt, issues})
}
