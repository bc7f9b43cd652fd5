package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/firmforge/firmforge/pkg/model"
	"github.com/firmforge/firmforge/pkg/topics"
	"github.com/firmforge/firmforge/pkg/validate"
)

// RunStatus represents the overall status of a compile run.
type RunStatus string

const (
	// RunStatusSucceeded indicates every found domain produced artifacts.
	RunStatusSucceeded RunStatus = "succeeded"

	// RunStatusFailed indicates no found domain produced artifacts.
	RunStatusFailed RunStatus = "failed"

	// RunStatusPartial indicates some domains produced artifacts while
	// others failed.
	RunStatusPartial RunStatus = "partial"

	// RunStatusCancelled indicates the run was cancelled.
	RunStatusCancelled RunStatus = "cancelled"
)

// Validate checks if the run status is valid.
func (s RunStatus) Validate() error {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusPartial, RunStatusCancelled:
		return nil
	default:
		return fmt.Errorf("invalid run status: %s", s)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s RunStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *RunStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = RunStatus(str)
	return s.Validate()
}

// DomainStatus represents the outcome of one domain within a run.
type DomainStatus string

const (
	// DomainStatusSucceeded indicates the domain validated and emitted
	// its artifacts.
	DomainStatusSucceeded DomainStatus = "succeeded"

	// DomainStatusFailed indicates the domain was found but produced no
	// artifacts (validation failure or band exhaustion).
	DomainStatusFailed DomainStatus = "failed"

	// DomainStatusSkipped indicates no input contributed to the domain.
	DomainStatusSkipped DomainStatus = "skipped"
)

// Validate checks if the domain status is valid.
func (s DomainStatus) Validate() error {
	switch s {
	case DomainStatusSucceeded, DomainStatusFailed, DomainStatusSkipped:
		return nil
	default:
		return fmt.Errorf("invalid domain status: %s", s)
	}
}

// DomainResult is the outcome of one domain's validate/allocate/emit pass.
type DomainResult struct {
	// Domain is the config domain this result belongs to.
	Domain model.Domain `json:"domain"`

	// Status is the domain outcome.
	Status DomainStatus `json:"status"`

	// Found reports whether any file contributed content to the domain.
	Found bool `json:"found"`

	// Violations is the ordered violation list when validation failed.
	Violations validate.Result `json:"violations,omitempty"`

	// Topics is the allocated channel topic table (task domain only).
	Topics *topics.Table `json:"-"`

	// MirrorFile is the mirrored merged document path, if written.
	MirrorFile string `json:"mirror_file,omitempty"`

	// OutFiles are the generated artifact paths in emission order.
	OutFiles []string `json:"out_files,omitempty"`

	// Err is the classified error that stopped the domain, if any.
	Err error `json:"-"`
}

// RunSummary provides per-domain statistics about a run.
type RunSummary struct {
	// Total is the number of domains processed.
	Total int `json:"total"`

	// Succeeded is the number of domains that emitted artifacts.
	Succeeded int `json:"succeeded"`

	// Failed is the number of domains that failed.
	Failed int `json:"failed"`

	// Skipped is the number of domains with no input.
	Skipped int `json:"skipped"`
}

// RunResult represents one complete compile run.
type RunResult struct {
	// RunID is the unique identifier for this run.
	RunID string `json:"run_id"`

	// Root is the project root the run scanned.
	Root string `json:"root"`

	// Status is the overall run status.
	Status RunStatus `json:"status"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run completed.
	CompletedAt time.Time `json:"completed_at"`

	// Duration is the total run duration.
	Duration time.Duration `json:"duration"`

	// Files are the scanned configuration files in processing order.
	Files []string `json:"files"`

	// Domains are the per-domain results in fixed domain order.
	Domains []DomainResult `json:"domains"`

	// Summary provides per-domain statistics.
	Summary RunSummary `json:"summary"`
}

// Artifacts returns every generated artifact path across all domains, in
// emission order.
func (r *RunResult) Artifacts() []string {
	var out []string
	for _, d := range r.Domains {
		out = append(out, d.OutFiles...)
	}
	return out
}

// DomainFor returns the result for the given domain, if present.
func (r *RunResult) DomainFor(domain model.Domain) (DomainResult, bool) {
	for _, d := range r.Domains {
		if d.Domain == domain {
			return d, true
		}
	}
	return DomainResult{}, false
}

// Violations returns every violation across all domains, in domain order.
func (r *RunResult) Violations() []validate.Violation {
	var out []validate.Violation
	for _, d := range r.Domains {
		out = append(out, d.Violations...)
	}
	return out
}

// finish computes the summary, status, and timing of a completed run.
func (r *RunResult) finish(started time.Time) {
	r.Summary = RunSummary{Total: len(r.Domains)}
	for _, d := range r.Domains {
		switch d.Status {
		case DomainStatusSucceeded:
			r.Summary.Succeeded++
		case DomainStatusFailed:
			r.Summary.Failed++
		case DomainStatusSkipped:
			r.Summary.Skipped++
		}
	}

	switch {
	case r.Summary.Failed == 0:
		r.Status = RunStatusSucceeded
	case r.Summary.Succeeded > 0:
		r.Status = RunStatusPartial
	default:
		r.Status = RunStatusFailed
	}

	r.StartedAt = started
	r.CompletedAt = time.Now()
	r.Duration = r.CompletedAt.Sub(r.StartedAt)
}
