package alerts

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"
)

// Outcome summarises one alert's contribution to a pass.
type Outcome struct {
	Code     string `json:"code"`
	Eligible int    `json:"eligible"`
	Removed  int    `json:"removed"`
	Set      int    `json:"set"`
}

// Plan is the result of one resolution pass: the final status writes to
// apply against the project, one logical update per participant. A
// participant appears in Clears or in Sets, never both, so the remote field
// is never observably half-cleared.
type Plan struct {
	PassID    uuid.UUID         `json:"pass_id"`
	Today     time.Time         `json:"today"`
	Clears    []string          `json:"clears"`
	Sets      map[string]string `json:"sets"`
	Custom    []string          `json:"custom"`
	Corrupted []string          `json:"corrupted"`
	Outcomes  []Outcome         `json:"outcomes"`
}

// Resolver evaluates an ordered alert definition list against a snapshot.
// The list is the priority policy: definitions are processed lowest priority
// first and a later status assignment overwrites an earlier one.
type Resolver struct {
	defs []Definition
	log  zerolog.Logger
}

func NewResolver(defs []Definition, log zerolog.Logger) *Resolver {
	return &Resolver{defs: defs, log: log.With().Str("component", "resolver").Logger()}
}

// Resolve runs one pass. It never touches the remote store: the returned
// Plan is the complete set of writes.
//
// The pass keeps a pending-status overlay over the snapshot, so every rule
// sees the writes of the rules before it (read-your-writes, replacing the
// re-export between alerts the reference workflow needed). Statuses not
// recognizable as any defined alert are custom annotations: their owners are
// excluded from every rule and their text is left alone. Whitespace-only
// statuses are corrupted data, not annotations; they are cleared.
func (r *Resolver) Resolve(s *study.Snapshot, env *Env) *Plan {
	plan := &Plan{
		PassID: uuid.New(),
		Today:  study.Day(env.Today),
		Sets:   make(map[string]string),
	}

	current := s.Statuses(env.Params.StatusEvent)
	overlay := make(map[string]string, len(current))
	for id, text := range current {
		overlay[id] = text
	}

	blocked := study.NewIDSet(env.Params.BlockedRecords...)
	for id, text := range current {
		switch Classify(text, r.defs) {
		case ClassCustom:
			blocked.Add(id)
			plan.Custom = append(plan.Custom, id)
		case ClassBlank:
			overlay[id] = ""
			plan.Corrupted = append(plan.Corrupted, id)
		}
	}

	touched := make(study.IDSet)
	for i := range r.defs {
		d := &r.defs[i]
		outcome := Outcome{Code: d.Code}

		eligible := d.Eligible(s, env).Diff(blocked)
		outcome.Eligible = eligible.Len()

		// Remove this alert's text wherever its holder no longer qualifies.
		for id, text := range overlay {
			if eligible.Has(id) || !Matches(text, d.Code, d.Match, d.AltPrefix) {
				continue
			}
			if d.Match == MatchSuffix {
				overlay[id] = StripSuffixCode(text, d.Code)
			} else {
				overlay[id] = ""
			}
			touched.Add(id)
			outcome.Removed++
		}

		for _, id := range eligible.Sorted() {
			payload, ok := d.Payload(s, id, env)
			if !ok {
				continue
			}
			text := Render(d.Template, payload)
			if d.Augment {
				if !r.augment(overlay, id, d, text) {
					continue
				}
			} else {
				overlay[id] = text
			}
			touched.Add(id)
			outcome.Set++
		}

		r.log.Info().
			Str("alert", d.Code).
			Int("eligible", outcome.Eligible).
			Int("removed", outcome.Removed).
			Int("set", outcome.Set).
			Msg("alert resolved")
		plan.Outcomes = append(plan.Outcomes, outcome)
	}

	// One final write per participant: everything touched this pass whose
	// final text is non-empty is upserted; what ended empty but is non-empty
	// remotely is cleared.
	for id := range touched {
		final := overlay[id]
		if final == "" {
			if current[id] != "" {
				plan.Clears = append(plan.Clears, id)
			}
			continue
		}
		plan.Sets[id] = final
	}
	// Corrupted statuses are cleared even when no rule touched them.
	for _, id := range plan.Corrupted {
		if overlay[id] == "" && current[id] != "" && !touched.Has(id) {
			plan.Clears = append(plan.Clears, id)
		}
	}
	sort.Strings(plan.Clears)
	sort.Strings(plan.Custom)
	sort.Strings(plan.Corrupted)

	return plan
}

// augment splices an append-style code (BW) onto the participant's pending
// status. COMPLETED statuses never take the marker. Reports whether the
// overlay changed.
func (r *Resolver) augment(overlay map[string]string, id string, d *Definition, text string) bool {
	base := StripSuffixCode(overlay[id], d.Code)
	if strings.Contains(base, CodeCompleted) {
		return false
	}
	if base == "" {
		overlay[id] = text
	} else {
		overlay[id] = base + " " + text
	}
	return true
}
