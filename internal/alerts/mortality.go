package alerts

import (
	"time"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"
)

// contactDateFields are every date column that counts as "we heard from this
// participant": EPI visits, mortality surveillance contacts, household
// visits, adverse event reports, unscheduled visits, migration and clinical
// history entries.
var contactDateFields = []func(*study.Row) *time.Time{
	func(r *study.Row) *time.Time { return r.InterventionDate },
	func(r *study.Row) *time.Time { return r.MortalityContactDate },
	func(r *study.Row) *time.Time { return r.HouseholdDate },
	func(r *study.Row) *time.Time { return r.AEDate },
	func(r *study.Row) *time.Time { return r.SAEAwarenessDate },
	func(r *study.Row) *time.Time { return r.MSDate },
	func(r *study.Row) *time.Time { return r.UnschDate },
	func(r *study.Row) *time.Time { return r.MigrationDate },
	func(r *study.Row) *time.Time { return r.NonCompliantDate },
	func(r *study.Row) *time.Time { return r.ClinicalHistoryDate },
}

// MortalityEligible flags participants whose vital status is unknown:
// the most recent contact of any kind is more than DaysWithoutContact days
// old. Rows at excluded events do not count as contact, and participants
// whose 18-month household follow-up is complete are out of surveillance.
func MortalityEligible(s *study.Snapshot, env *Env) study.IDSet {
	out := make(study.IDSet)
	excluded := study.NewIDSet(env.Params.ExcludedMSEvents...)
	today := study.Day(env.Today)
	for _, id := range s.RecordIDs() {
		last, _, ok := s.LastDateAcross(id, contactDateFields, excluded)
		if !ok {
			continue
		}
		if study.DaysBetween(last, today) > env.Params.DaysWithoutContact {
			out.Add(id)
		}
	}
	return out.Diff(completedFollowUp(s))
}

// MortalityPayload fills the MS template with the label of the event that
// produced the most recent contact date, so the field worker knows which
// visit to chase.
func MortalityPayload(s *study.Snapshot, id string, env *Env) (map[string]string, bool) {
	excluded := study.NewIDSet(env.Params.ExcludedMSEvents...)
	_, event, ok := s.LastDateAcross(id, contactDateFields, excluded)
	if !ok {
		return nil, false
	}
	return map[string]string{"last_contact_event": env.EventName(event)}, true
}

// completedFollowUp returns participants whose 18-month household follow-up
// form is marked complete.
func completedFollowUp(s *study.Snapshot) study.IDSet {
	out := make(study.IDSet)
	for _, id := range s.RecordIDs() {
		if v, ok := s.MaxInt(id, study.EventHH18Month, func(r *study.Row) *int { return r.HouseholdComplete }); ok && v == study.FormComplete {
			out.Add(id)
		}
	}
	return out
}
