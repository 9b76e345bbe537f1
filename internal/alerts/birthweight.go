package alerts

import "github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"

// BirthWeightEligible flags participants whose recruitment row never
// recorded whether the birth weight is known. The BW marker is appended to
// the existing status rather than replacing it, so this rule only decides
// membership; the resolver handles the splice.
func BirthWeightEligible(s *study.Snapshot, env *Env) study.IDSet {
	out := make(study.IDSet)
	for _, id := range s.RecordIDs() {
		rows := s.EventRows(id, study.EventRecruitment)
		if len(rows) == 0 {
			continue
		}
		missing := true
		for _, r := range rows {
			if r.BirthWeightKnown != nil {
				missing = false
				break
			}
		}
		if missing {
			out.Add(id)
		}
	}
	return out
}
