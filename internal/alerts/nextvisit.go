package alerts

import (
	"time"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"
)

// NextVisitEligible flags participants whose next scheduled return to the
// health facility falls inside the alert window: from DaysBeforeNV days
// before the return date until DaysAfterNV days past it, closed at the
// start and open at the end. Participants already owed a household visit
// (TBV) are excluded; that alert outranks this one.
func NextVisitEligible(s *study.Snapshot, env *Env) study.IDSet {
	out := make(study.IDSet)
	for _, id := range s.RecordIDs() {
		returnDate, ok := s.LastDate(id, func(r *study.Row) *time.Time { return r.NextVisitDate })
		if !ok {
			continue
		}
		sinceReturn := study.DaysBetween(returnDate, study.Day(env.Today))
		if -env.Params.DaysBeforeNV <= sinceReturn && sinceReturn < env.Params.DaysAfterNV {
			out.Add(id)
		}
	}
	return out.Diff(ToBeVisitedEligible(s, env))
}

// NextVisitPayload fills the NV template with the return date.
func NextVisitPayload(s *study.Snapshot, id string, env *Env) (map[string]string, bool) {
	returnDate, ok := s.LastDate(id, func(r *study.Row) *time.Time { return r.NextVisitDate })
	if !ok {
		return nil, false
	}
	return map[string]string{"return_date": returnDate.Format(AlertDateFormat)}, true
}
