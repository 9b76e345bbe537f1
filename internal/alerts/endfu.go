package alerts

import (
	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"
)

// EndFUEligible flags participants approaching the end of the trial follow
// up: at least EndFUAlertFrom months old with the EndFUMonths-month birthday
// under DaysBeforeEndFU days away, and not yet closed out by the 18-month
// household visit.
func EndFUEligible(s *study.Snapshot, env *Env) study.IDSet {
	about := aboutToTurn(s, env, env.Params.EndFUMonths, env.Params.EndFUAlertFrom, env.Params.DaysBeforeEndFU)
	completed, unreachable := endFUClosed(s)
	return about.Diff(completed.Union(unreachable))
}

// CompletedEligible flags participants whose end-of-follow-up household
// visit confirmed the child: seen at home or confirmed by phone.
func CompletedEligible(s *study.Snapshot, env *Env) study.IDSet {
	completed, _ := endFUClosed(s)
	return completed
}

// UnreachableEligible flags participants closed out as unreachable. The set
// is disjoint from CompletedEligible: a confirmed child is never
// unreachable, whatever else was recorded.
func UnreachableEligible(s *study.Snapshot, env *Env) study.IDSet {
	completed, unreachable := endFUClosed(s)
	return unreachable.Diff(completed)
}

// EndFUPayload fills the END F/U template with the 18-month birthday.
func EndFUPayload(s *study.Snapshot, id string, env *Env) (map[string]string, bool) {
	return birthdayPayload(s, id, env.Params.EndFUMonths)
}

// aboutToTurn returns the participants at least fromMonths old whose
// months-month birthday is under daysBefore days away. Participants without
// a recorded date of birth are skipped.
func aboutToTurn(s *study.Snapshot, env *Env, months, fromMonths, daysBefore int) study.IDSet {
	out := make(study.IDSet)
	today := study.Day(env.Today)
	for _, id := range s.RecordIDs() {
		dob, ok := s.DOB(id)
		if !ok {
			continue
		}
		if study.AgeMonths(dob, today) < fromMonths {
			continue
		}
		if study.DaysToBirthday(dob, months, today) < daysBefore {
			out.Add(id)
		}
	}
	return out
}

// endFUClosed splits the participants with a terminal 18-month household
// follow-up row into confirmed (child seen at home, or phone contact found
// the child) and unreachable.
func endFUClosed(s *study.Snapshot) (completed, unreachable study.IDSet) {
	completed = make(study.IDSet)
	unreachable = make(study.IDSet)
	for _, id := range s.RecordIDs() {
		for _, r := range s.EventRows(id, study.EventHH18Month) {
			if r.RepeatInstrument != study.InstrumentHouseholdFollowUp {
				continue
			}
			if (r.ChildSeen != nil && *r.ChildSeen == 1) ||
				(r.PhoneChildStatus != nil && *r.PhoneChildStatus == study.PhoneChildSeen) {
				completed.Add(id)
			}
			if r.PhoneChildStatus != nil && *r.PhoneChildStatus == study.PhoneChildUnreachable {
				unreachable.Add(id)
			}
		}
	}
	return completed, unreachable
}

// birthdayPayload renders the date a participant turns the given age.
func birthdayPayload(s *study.Snapshot, id string, months int) (map[string]string, bool) {
	dob, ok := s.DOB(id)
	if !ok {
		return nil, false
	}
	return map[string]string{"birthday": study.AddMonths(dob, months).Format(AlertDateFormat)}, true
}
