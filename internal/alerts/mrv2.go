package alerts

import "github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"

// MRV2Eligible flags participants approaching the 15-month MRV2 visit:
// at least MRV2AlertFrom months old with the MRV2Months-month birthday
// under DaysBeforeMRV2 days away, and the MRV2 intervention not yet
// completed.
func MRV2Eligible(s *study.Snapshot, env *Env) study.IDSet {
	about := aboutToTurn(s, env, env.Params.MRV2Months, env.Params.MRV2AlertFrom, env.Params.DaysBeforeMRV2)
	return about.Diff(completedEPI(s))
}

// MRV2Payload fills the MRV2 template with the 15-month birthday.
func MRV2Payload(s *study.Snapshot, id string, env *Env) (map[string]string, bool) {
	return birthdayPayload(s, id, env.Params.MRV2Months)
}
