// Package runner drives one resolution pass end to end: export the project,
// resolve the alert plan, apply it back to REDCap and record the audit run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/alerts"
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/audit"
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/platform/telemetry"
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/redcap"
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"
)

// StatusField is the project field the alert text lives in.
const StatusField = "child_fu_status"

// ErrImportMismatch reports that REDCap acknowledged a different record
// count than the pass intended to write. The run is still audited; the
// caller decides whether to alarm.
var ErrImportMismatch = errors.New("import applied a different record count than intended")

// API is the slice of the REDCap client the runner needs. Tests substitute
// an in-memory project.
type API interface {
	ExportRecords(ctx context.Context, fields []string) ([]map[string]string, error)
	ExportFieldChoices(ctx context.Context, field string) (map[string]string, error)
	ImportRecords(ctx context.Context, updates []redcap.FieldUpdate, overwrite bool) (int, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithBatchSize caps how many record updates go into one import call.
func WithBatchSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

type Runner struct {
	defs       []alerts.Definition
	params     alerts.Params
	eventNames map[string]string
	runs       audit.RunRepository
	metrics    *telemetry.Metrics
	log        zerolog.Logger
	now        func() time.Time
	batchSize  int
}

func New(defs []alerts.Definition, params alerts.Params, eventNames map[string]string,
	runs audit.RunRepository, metrics *telemetry.Metrics, log zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		defs:       defs,
		params:     params,
		eventNames: eventNames,
		runs:       runs,
		metrics:    metrics,
		log:        log.With().Str("component", "runner").Logger(),
		now:        time.Now,
		batchSize:  500,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes one pass over one project. With dryRun the plan is resolved
// and audited but nothing is written back. The returned run is saved to the
// audit store even when applying failed partway.
func (r *Runner) Run(ctx context.Context, project string, api API, dryRun bool) (*audit.Run, error) {
	started := r.now()
	log := r.log.With().Str("project", project).Logger()

	snapshot, env, err := r.load(ctx, api)
	if err != nil {
		r.metrics.RunsTotal.WithLabelValues(project, "error").Inc()
		return nil, fmt.Errorf("project %s: %w", project, err)
	}

	plan := alerts.NewResolver(r.defs, log).Resolve(snapshot, env)

	run := &audit.Run{
		ID:        plan.PassID,
		Project:   project,
		DryRun:    dryRun,
		Today:     plan.Today,
		StartedAt: started,
		Records:   len(snapshot.RecordIDs()),
		Cleared:   len(plan.Clears),
		Set:       len(plan.Sets),
		Outcomes:  plan.Outcomes,
	}
	for _, o := range plan.Outcomes {
		r.metrics.AlertsEligible.WithLabelValues(project, o.Code).Set(float64(o.Eligible))
	}

	var applyErr error
	if !dryRun {
		run.Applied, applyErr = r.apply(ctx, api, plan)
		run.Mismatch = applyErr == nil && run.Applied != run.Intended()
		if applyErr != nil {
			run.Error = applyErr.Error()
		}
		if run.Mismatch {
			r.metrics.ImportMismatch.Inc()
			log.Warn().
				Int("intended", run.Intended()).
				Int("applied", run.Applied).
				Msg("REDCap applied a different record count than planned")
		}
		r.metrics.StatusesCleared.Add(float64(len(plan.Clears)))
		r.metrics.StatusesSet.Add(float64(len(plan.Sets)))
	}

	run.FinishedAt = r.now()
	r.metrics.RunDuration.Observe(run.FinishedAt.Sub(started).Seconds())

	result := "ok"
	switch {
	case applyErr != nil:
		result = "error"
	case run.Mismatch:
		result = "mismatch"
	case dryRun:
		result = "dry_run"
	}
	r.metrics.RunsTotal.WithLabelValues(project, result).Inc()

	if err := r.runs.Save(ctx, run); err != nil {
		log.Error().Err(err).Msg("saving audit run failed")
	}

	log.Info().
		Bool("dry_run", dryRun).
		Int("records", run.Records).
		Int("cleared", run.Cleared).
		Int("set", run.Set).
		Int("custom", len(plan.Custom)).
		Int("corrupted", len(plan.Corrupted)).
		Msg("pass finished")

	if applyErr != nil {
		return run, fmt.Errorf("project %s: %w", project, applyErr)
	}
	if run.Mismatch {
		return run, fmt.Errorf("project %s: intended %d updates, applied %d: %w",
			project, run.Intended(), run.Applied, ErrImportMismatch)
	}
	return run, nil
}

// RemoveAlert force-clears one alert's text from every status that carries
// it, without evaluating any rule. Suffix-matched codes are stripped, the
// rest of the status text kept.
func (r *Runner) RemoveAlert(ctx context.Context, project string, api API, code string, dryRun bool) (int, error) {
	def, err := r.definition(code)
	if err != nil {
		return 0, err
	}

	records, err := api.ExportRecords(ctx, []string{"record_id", "redcap_event_name", StatusField})
	if err != nil {
		return 0, fmt.Errorf("project %s: %w", project, err)
	}
	snapshot := study.FromRecords(records)

	var updates []redcap.FieldUpdate
	for id, text := range snapshot.Statuses(r.params.StatusEvent) {
		if !alerts.Matches(text, def.Code, def.Match, def.AltPrefix) {
			continue
		}
		value := ""
		if def.Match == alerts.MatchSuffix {
			value = alerts.StripSuffixCode(text, def.Code)
		}
		updates = append(updates, redcap.FieldUpdate{RecordID: id, Field: StatusField, Value: value})
	}

	r.log.Info().
		Str("project", project).
		Str("alert", code).
		Bool("dry_run", dryRun).
		Int("matched", len(updates)).
		Msg("force removing alert")

	if dryRun || len(updates) == 0 {
		return len(updates), nil
	}
	return r.importBatches(ctx, api, updates, true)
}

func (r *Runner) definition(code string) (*alerts.Definition, error) {
	for i := range r.defs {
		if r.defs[i].Code == code {
			return &r.defs[i], nil
		}
	}
	return nil, fmt.Errorf("unknown alert code %q", code)
}

// load exports the participant-visit table and builds the rule environment.
func (r *Runner) load(ctx context.Context, api API) (*study.Snapshot, *alerts.Env, error) {
	records, err := api.ExportRecords(ctx, study.AlertLogicFields)
	if err != nil {
		return nil, nil, err
	}
	snapshot := study.FromRecords(records)

	communities, err := api.ExportFieldChoices(ctx, "community")
	if err != nil {
		return nil, nil, err
	}

	env := &alerts.Env{
		Today:       r.now(),
		Params:      r.params,
		Communities: communities,
		EventNames:  r.eventNames,
	}
	return snapshot, env, nil
}

// apply pushes the plan to REDCap: clears first with overwrite enabled so
// blanks actually erase, then the new texts. A participant is in one group
// only, so the remote field is never observably half-written.
func (r *Runner) apply(ctx context.Context, api API, plan *alerts.Plan) (int, error) {
	clears := make([]redcap.FieldUpdate, 0, len(plan.Clears))
	for _, id := range plan.Clears {
		clears = append(clears, redcap.FieldUpdate{RecordID: id, Field: StatusField})
	}
	applied, err := r.importBatches(ctx, api, clears, true)
	if err != nil {
		return applied, fmt.Errorf("clearing statuses: %w", err)
	}

	sets := make([]redcap.FieldUpdate, 0, len(plan.Sets))
	for _, id := range sortedKeys(plan.Sets) {
		sets = append(sets, redcap.FieldUpdate{RecordID: id, Field: StatusField, Value: plan.Sets[id]})
	}
	n, err := r.importBatches(ctx, api, sets, true)
	applied += n
	if err != nil {
		return applied, fmt.Errorf("setting statuses: %w", err)
	}
	return applied, nil
}

func (r *Runner) importBatches(ctx context.Context, api API, updates []redcap.FieldUpdate, overwrite bool) (int, error) {
	applied := 0
	for start := 0; start < len(updates); start += r.batchSize {
		end := start + r.batchSize
		if end > len(updates) {
			end = len(updates)
		}
		n, err := api.ImportRecords(ctx, updates[start:end], overwrite)
		applied += n
		if err != nil {
			return applied, err
		}
	}
	return applied, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
