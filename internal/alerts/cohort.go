package alerts

import "github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"

// CohortEligible flags sub-study participants due for the cohort visit
// around CohortMonths months of age. Only participants in the configured
// sample qualify, and only while their randomization letter still has
// recruitment slots left; participants already holding the cohort end event
// are done.
func CohortEligible(s *study.Snapshot, env *Env) study.IDSet {
	if len(env.Params.CohortSample) == 0 {
		return make(study.IDSet)
	}

	sampleNumbers := make(map[string]bool, len(env.Params.CohortSample))
	for _, m := range env.Params.CohortSample {
		sampleNumbers[m.StudyNumber] = true
	}

	done := s.RecordsWithEvent(study.EventCohortEndMRV2)
	finished := finishedLetters(s, env.Params.CohortTargets, done)

	window := aboutToTurn(s, env, env.Params.CohortMonths, env.Params.CohortAlertFrom, env.Params.DaysBeforeMRV2)

	out := make(study.IDSet)
	for id := range window {
		if done.Has(id) {
			continue
		}
		number := s.FieldValue(id, func(r *study.Row) string { return r.StudyNumber })
		if !sampleNumbers[number] {
			continue
		}
		letter := s.FieldValue(id, func(r *study.Row) string { return r.RandomLetter })
		if finished[letter] {
			continue
		}
		out.Add(id)
	}
	return out
}

// finishedLetters counts completed cohort participants per randomization
// letter and reports the letters that already met their recruitment target.
func finishedLetters(s *study.Snapshot, targets map[string]int, done study.IDSet) map[string]bool {
	completed := make(map[string]int)
	for id := range done {
		letter := s.FieldValue(id, func(r *study.Row) string { return r.RandomLetter })
		if letter != "" {
			completed[letter]++
		}
	}
	finished := make(map[string]bool)
	for letter, target := range targets {
		if target-completed[letter] <= 0 {
			finished[letter] = true
		}
	}
	return finished
}

// CohortPayload fills the COHORT template with the cohort-age birthday.
func CohortPayload(s *study.Snapshot, id string, env *Env) (map[string]string, bool) {
	return birthdayPayload(s, id, env.Params.CohortMonths)
}
