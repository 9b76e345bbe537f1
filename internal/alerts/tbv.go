package alerts

import (
	"time"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"
)

// ToBeVisitedEligible flags participants whose AZi/Pbo administration has
// not yet been matched by a successful household follow-up contact:
//
//   - recruited at Penta1 but no household-after-first-dose event at all;
//   - the household follow-up was attempted by phone (fu_type 1) and the
//     call never succeeded;
//   - the call succeeded but a drug reaction or health complaint was
//     reported, so the field worker still has to go.
func ToBeVisitedEligible(s *study.Snapshot, env *Env) study.IDSet {
	recruited := s.RecordsWithEvent(study.EventRecruitment)
	visited := s.RecordsWithEvent(study.EventHHFirstDose)

	out := recruited.Diff(visited)

	for id := range recruited.Intersect(visited) {
		fuType, typeOK := s.MaxInt(id, study.EventHHFirstDose, func(r *study.Row) *int { return r.FollowUpType })
		success, successOK := s.MaxInt(id, study.EventHHFirstDose, func(r *study.Row) *int { return r.PhoneSuccess })

		if typeOK && fuType == 1 && successOK && success == 0 {
			out.Add(id)
			continue
		}
		if successOK && success == 1 {
			react, reactOK := s.MaxInt(id, study.EventHHFirstDose, func(r *study.Row) *int { return r.DrugReaction })
			complaint, complaintOK := s.MaxInt(id, study.EventHHFirstDose, func(r *study.Row) *int { return r.HealthComplaint })
			if (reactOK && react == 1) || (complaintOK && complaint == 1) {
				out.Add(id)
			}
		}
	}
	return out
}

// ToBeVisitedPayload fills the TBV template with the community name and the
// date of the last administered dose. Participants without a recorded
// community or dose are skipped this pass, like every null lookup.
func ToBeVisitedPayload(s *study.Snapshot, id string, env *Env) (map[string]string, bool) {
	community := s.Community(id)
	if community == "" {
		return nil, false
	}
	doseDate, ok := lastDoseDate(s, id)
	if !ok {
		return nil, false
	}
	return map[string]string{
		"community":     env.CommunityName(community),
		"last_azi_date": doseDate.Format(AlertDateFormat),
	}, true
}

// lastDoseDate returns the most recent intervention date of a row where an
// AZi/Pbo dose was administered.
func lastDoseDate(s *study.Snapshot, id string) (time.Time, bool) {
	var last time.Time
	found := false
	for _, r := range s.Rows(id) {
		if r.AziDose == nil || *r.AziDose != 1 || r.InterventionDate == nil {
			continue
		}
		if !found || r.InterventionDate.After(last) {
			last = *r.InterventionDate
			found = true
		}
	}
	return last, found
}
