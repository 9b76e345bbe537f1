package alerts

import (
	"strconv"
	"time"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"
)

// NonCompliantEligible flags participants expected back at the health
// facility more than DaysToNC days ago, unless a later non-compliance home
// visit already followed up on them, and never once the EPI schedule is
// completed (MRV2 intervention marked complete).
func NonCompliantEligible(s *study.Snapshot, env *Env) study.IDSet {
	out := make(study.IDSet)
	today := study.Day(env.Today)
	for _, id := range s.RecordIDs() {
		returnDate, ok := s.LastDate(id, func(r *study.Row) *time.Time { return r.NextVisitDate })
		if !ok {
			continue
		}
		if ncDate, ok := s.LastDate(id, func(r *study.Row) *time.Time { return r.NonCompliantDate }); ok && ncDate.After(returnDate) {
			continue
		}
		if study.DaysBetween(returnDate, today) > env.Params.DaysToNC {
			out.Add(id)
		}
	}
	return out.Diff(completedEPI(s))
}

// completedEPI returns the participants whose MRV2 intervention form is
// marked complete, the end of the EPI vaccination schedule.
func completedEPI(s *study.Snapshot) study.IDSet {
	out := make(study.IDSet)
	for _, id := range s.RecordIDs() {
		if v, ok := s.MaxInt(id, study.EventMRV2, func(r *study.Row) *int { return r.InterventionComplete }); ok && v == study.FormComplete {
			out.Add(id)
		}
	}
	return out
}

// NonCompliantPayload fills the NC template with the community name and the
// number of whole weeks the participant is overdue.
func NonCompliantPayload(s *study.Snapshot, id string, env *Env) (map[string]string, bool) {
	community := s.Community(id)
	if community == "" {
		return nil, false
	}
	returnDate, ok := s.LastDate(id, func(r *study.Row) *time.Time { return r.NextVisitDate })
	if !ok {
		return nil, false
	}
	weeks := study.DaysBetween(returnDate, study.Day(env.Today)) / 7
	return map[string]string{
		"community": env.CommunityName(community),
		"weeks":     strconv.Itoa(weeks),
	}, true
}
