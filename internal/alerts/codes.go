// Package alerts implements the follow-up alert rule set of the ICARIA
// trial: a set of eligibility predicates over a project snapshot, the status
// text codec for the child_fu_status field, and the resolver that turns both
// into one batch of status upserts per pass.
package alerts

import "strings"

// Alert codes. Each code is a disjoint prefix of the status text (BW is the
// one suffix-matched exception), so an existing status can always be traced
// back to the rule that produced it.
const (
	CodeTBV         = "TBV"
	CodeNC          = "NC"
	CodeNV          = "NEXT VISIT"
	CodeEndFU       = "END F/U"
	CodeCompleted   = "COMPLETED"
	CodeUnreachable = "UNREACHABLE"
	CodeMS          = "MS"
	CodeMRV2        = "MRV2"
	CodeAZV1        = "AZV1"
	CodeAZV2        = "AZV2"
	CodeBW          = "BW"
	CodeCohort      = "COHORT"
)

// AlertDateFormat is how dates are shown inside a status text ("Jul 09").
const AlertDateFormat = "Jan 02"

// Default message templates. Placeholders use {{name}} notation and are
// resolved by Render with the payload a rule computed for the participant.
const (
	TemplateTBV         = "TBV@{{community}} AZi/Pbo@{{last_azi_date}}"
	TemplateNC          = "NC@{{community}} ({{weeks}} weeks)"
	TemplateNV          = "NEXT VISIT: {{return_date}}"
	TemplateEndFU       = "END F/U: {{birthday}}"
	TemplateCompleted   = "COMPLETED"
	TemplateUnreachable = "UNREACHABLE"
	TemplateMS          = "MS: {{last_contact_event}}"
	TemplateMRV2        = "MRV2: {{birthday}}"
	TemplateAZV1        = "AZV1: {{dose_date}}"
	TemplateAZV2        = "AZV2: {{dose_date}}"
	TemplateBW          = "BW"
	TemplateCohort      = "COHORT: {{birthday}}"
)

// Render substitutes {{key}} placeholders in a template with the payload
// values.
func Render(template string, payload map[string]string) string {
	out := template
	for k, v := range payload {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}
