package alerts

import "github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"

// Definition binds an alert code to its predicate, its message template and
// its matching rules. The resolver processes definitions in list order;
// position is priority, lowest first, so a later definition's status
// overwrites an earlier one's when a participant qualifies for both.
type Definition struct {
	Code     string
	Template string
	Match    MatchMode

	// AltPrefix is the sub-cohort spelling accepted in addition to the bare
	// code when prefix-matching existing statuses.
	AltPrefix string

	// Augment marks codes appended to whatever status is already present
	// instead of replacing it (the birth-weight marker).
	Augment bool

	// Eligible computes the participant ids that currently qualify.
	Eligible func(s *study.Snapshot, env *Env) study.IDSet

	// Payload computes the template values for one qualifying participant.
	// ok=false drops the participant from this pass (e.g. the community is
	// not recorded yet), mirroring how null lookups are skipped everywhere.
	Payload func(s *study.Snapshot, id string, env *Env) (map[string]string, bool)
}

// Definitions returns the full canonical alert list in priority order,
// lowest first. END F/U and its COMPLETED/UNREACHABLE companions outrank
// everything that can still be acted on; the BW marker comes last because it
// augments whatever status the pass produced.
func Definitions() []Definition {
	return []Definition{
		{
			Code:     CodeNV,
			Template: TemplateNV,
			Eligible: NextVisitEligible,
			Payload:  NextVisitPayload,
		},
		{
			Code:     CodeNC,
			Template: TemplateNC,
			Eligible: NonCompliantEligible,
			Payload:  NonCompliantPayload,
		},
		{
			Code:     CodeMS,
			Template: TemplateMS,
			Eligible: MortalityEligible,
			Payload:  MortalityPayload,
		},
		{
			Code:      CodeMRV2,
			Template:  TemplateMRV2,
			AltPrefix: "COHORT ",
			Eligible:  MRV2Eligible,
			Payload:   MRV2Payload,
		},
		{
			Code:     CodeAZV1,
			Template: TemplateAZV1,
			Eligible: AziVacTier1Eligible,
			Payload:  AziVacPayload,
		},
		{
			Code:     CodeAZV2,
			Template: TemplateAZV2,
			Eligible: AziVacTier2Eligible,
			Payload:  AziVacPayload,
		},
		{
			Code:     CodeTBV,
			Template: TemplateTBV,
			Eligible: ToBeVisitedEligible,
			Payload:  ToBeVisitedPayload,
		},
		{
			Code:     CodeCohort,
			Template: TemplateCohort,
			Eligible: CohortEligible,
			Payload:  CohortPayload,
		},
		{
			Code:     CodeEndFU,
			Template: TemplateEndFU,
			Eligible: EndFUEligible,
			Payload:  EndFUPayload,
		},
		{
			Code:     CodeCompleted,
			Template: TemplateCompleted,
			Eligible: CompletedEligible,
			Payload:  fixedPayload,
		},
		{
			Code:     CodeUnreachable,
			Template: TemplateUnreachable,
			Eligible: UnreachableEligible,
			Payload:  fixedPayload,
		},
		{
			Code:     CodeBW,
			Template: TemplateBW,
			Match:    MatchSuffix,
			Augment:  true,
			Eligible: BirthWeightEligible,
			Payload:  fixedPayload,
		},
	}
}

// Select keeps, in canonical order, only the definitions whose code is in
// the enabled list. An empty list enables everything.
func Select(all []Definition, enabled []string) []Definition {
	if len(enabled) == 0 {
		return all
	}
	want := make(map[string]bool, len(enabled))
	for _, code := range enabled {
		want[code] = true
	}
	var out []Definition
	for _, d := range all {
		if want[d.Code] {
			out = append(out, d)
		}
	}
	return out
}

func fixedPayload(*study.Snapshot, string, *Env) (map[string]string, bool) {
	return nil, true
}
