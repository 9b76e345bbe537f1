package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/alerts"
)

// Run is the audit record of one resolution pass against one project.
type Run struct {
	ID         uuid.UUID        `json:"id"`
	Project    string           `json:"project"`
	DryRun     bool             `json:"dry_run"`
	Today      time.Time        `json:"today"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Records    int              `json:"records"`
	Cleared    int              `json:"cleared"`
	Set        int              `json:"set"`
	Applied    int              `json:"applied"`
	Mismatch   bool             `json:"mismatch"`
	Error      string           `json:"error,omitempty"`
	Outcomes   []alerts.Outcome `json:"outcomes"`
}

// Intended is the number of record updates the plan called for.
func (r *Run) Intended() int {
	return r.Cleared + r.Set
}
