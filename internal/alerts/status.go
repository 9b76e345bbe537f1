package alerts

import "strings"

// MatchMode says how an alert code is located inside a status text.
type MatchMode int

const (
	// MatchPrefix: the status starts with the code ("NC@Ndiop (6 weeks)").
	MatchPrefix MatchMode = iota
	// MatchSuffix: the status ends with the code; used by the birth-weight
	// marker, which is appended to whatever status is already present.
	MatchSuffix
)

// Status is the structured form of the follow-up status field: which rule
// produced it plus the payload its template was rendered with. The free-text
// spelling only exists at the REDCap boundary.
type Status struct {
	Kind    string
	Payload map[string]string
}

// Class is the classification of an existing status text.
type Class int

const (
	// ClassNone: no status set.
	ClassNone Class = iota
	// ClassActive: produced by one of the defined alerts.
	ClassActive
	// ClassCustom: manually annotated; protected from every rule.
	ClassCustom
	// ClassBlank: whitespace only. Corrupted data, not an annotation; the
	// resolver clears it instead of protecting it.
	ClassBlank
)

// Matches reports whether a status text carries the given code under the
// given match mode. Prefix matching also accepts the sub-cohort spelling of
// the same code (altPrefix+code), the two valid spellings of one alert.
func Matches(text, code string, mode MatchMode, altPrefix string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	switch mode {
	case MatchSuffix:
		return strings.HasSuffix(trimmed, code)
	default:
		if strings.HasPrefix(trimmed, code) {
			return true
		}
		return altPrefix != "" && strings.HasPrefix(trimmed, altPrefix+code)
	}
}

// Classify decides what an existing status text is with respect to the
// defined alerts. Definitions are needed because "custom" means "not
// recognizably produced by any defined alert".
func Classify(text string, defs []Definition) Class {
	if text == "" {
		return ClassNone
	}
	if strings.TrimSpace(text) == "" {
		return ClassBlank
	}
	for i := range defs {
		d := &defs[i]
		if Matches(text, d.Code, d.Match, d.AltPrefix) {
			return ClassActive
		}
	}
	return ClassCustom
}

// StripSuffixCode removes a suffix-matched code from a status text, keeping
// whatever the code was appended to. Removing " BW" from "TBV@Ndiop BW"
// yields "TBV@Ndiop"; from a bare "BW" it yields the empty string.
func StripSuffixCode(text, code string) string {
	trimmed := strings.TrimRight(text, " ")
	if !strings.HasSuffix(trimmed, code) {
		return text
	}
	return strings.TrimRight(strings.TrimSuffix(trimmed, code), " ")
}
