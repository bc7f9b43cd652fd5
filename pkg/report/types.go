package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/firmforge/firmforge/pkg/pipeline"
	"github.com/firmforge/firmforge/pkg/validate"
)

// RunRecord is a persisted compile run.
type RunRecord struct {
	ID          string    `json:"id"`
	Root        string    `json:"root"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMS  int64     `json:"duration_ms"`
	Files       int       `json:"files"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	CreatedAt   time.Time `json:"created_at"`
}

// DomainRecord is the persisted outcome of one domain within a run.
type DomainRecord struct {
	RunID      string  `json:"run_id"`
	Domain     string  `json:"domain"`
	Status     string  `json:"status"`
	Found      bool    `json:"found"`
	MirrorFile string  `json:"mirror_file,omitempty"`
	Artifacts  string  `json:"artifacts"`  // JSON array of paths
	Violations string  `json:"violations"` // JSON array of violations
	Error      *string `json:"error,omitempty"`
}

// AllocationRecord is one channel-to-identifier assignment from a run.
type AllocationRecord struct {
	RunID   string `json:"run_id"`
	Channel string `json:"channel"`
	TopicID int    `json:"topic_id"`
}

// Store defines the interface for the run ledger persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Run operations
	SaveRun(ctx context.Context, result *pipeline.RunResult) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*RunRecord, error)
	ListDomainResults(ctx context.Context, runID string) ([]*DomainRecord, error)
	ListAllocations(ctx context.Context, runID string) ([]*AllocationRecord, error)
	DeleteRun(ctx context.Context, id string) error
	PruneRuns(ctx context.Context, keep int) (int64, error)

	// Utility
	HealthCheck(ctx context.Context) error
}

// Snapshot converts a run result into its ledger records.
func Snapshot(result *pipeline.RunResult) (*RunRecord, []*DomainRecord, []*AllocationRecord, error) {
	run := &RunRecord{
		ID:          result.RunID,
		Root:        result.Root,
		Status:      string(result.Status),
		StartedAt:   result.StartedAt,
		CompletedAt: result.CompletedAt,
		DurationMS:  result.Duration.Milliseconds(),
		Files:       len(result.Files),
		Succeeded:   result.Summary.Succeeded,
		Failed:      result.Summary.Failed,
		Skipped:     result.Summary.Skipped,
	}

	var (
		domains []*DomainRecord
		allocs  []*AllocationRecord
	)
	for _, d := range result.Domains {
		outFiles := d.OutFiles
		if outFiles == nil {
			outFiles = []string{}
		}
		artifacts, err := json.Marshal(outFiles)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to encode artifacts for %s: %w", d.Domain, err)
		}
		violationList := d.Violations
		if violationList == nil {
			violationList = validate.Result{}
		}
		violations, err := json.Marshal(violationList)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to encode violations for %s: %w", d.Domain, err)
		}

		rec := &DomainRecord{
			RunID:      result.RunID,
			Domain:     string(d.Domain),
			Status:     string(d.Status),
			Found:      d.Found,
			MirrorFile: d.MirrorFile,
			Artifacts:  string(artifacts),
			Violations: string(violations),
		}
		if d.Err != nil {
			msg := d.Err.Error()
			rec.Error = &msg
		}
		domains = append(domains, rec)

		if d.Topics != nil {
			for _, a := range d.Topics.Allocations() {
				allocs = append(allocs, &AllocationRecord{
					RunID:   result.RunID,
					Channel: a.Name,
					TopicID: int(a.ID),
				})
			}
		}
	}

	return run, domains, allocs, nil
}
