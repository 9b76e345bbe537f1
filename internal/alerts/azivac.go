package alerts

import "github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"

// AziVacTier1Eligible flags participants whose last AZi/Pbo dose was
// administered AZVTier1From to AZVTier1To whole calendar months ago and who
// have no terminal household visit since.
func AziVacTier1Eligible(s *study.Snapshot, env *Env) study.IDSet {
	return aziVacEligible(s, env, env.Params.AZVTier1From, env.Params.AZVTier1To)
}

// AziVacTier2Eligible is the older tier: AZVTier1To+1 to AZVTier2To whole
// months since the dose.
func AziVacTier2Eligible(s *study.Snapshot, env *Env) study.IDSet {
	return aziVacEligible(s, env, env.Params.AZVTier1To+1, env.Params.AZVTier2To)
}

func aziVacEligible(s *study.Snapshot, env *Env, fromMonths, toMonths int) study.IDSet {
	out := make(study.IDSet)
	blocked := study.NewIDSet(env.Params.AZVBlocked...)
	completed, unreachable := endFUClosed(s)
	terminal := completed.Union(unreachable)
	today := study.Day(env.Today)
	for _, id := range s.RecordIDs() {
		if blocked.Has(id) || terminal.Has(id) {
			continue
		}
		dose, ok := lastDoseDate(s, id)
		if !ok {
			continue
		}
		// Whole-month distance, not a day count: a dose on Jan 31 is one
		// month old on Feb 1.
		months := study.WholeMonthsSince(dose, today)
		if fromMonths <= months && months <= toMonths {
			out.Add(id)
		}
	}
	return out
}

// AziVacPayload fills either AZV template with the dose date.
func AziVacPayload(s *study.Snapshot, id string, env *Env) (map[string]string, bool) {
	dose, ok := lastDoseDate(s, id)
	if !ok {
		return nil, false
	}
	return map[string]string{"dose_date": dose.Format(AlertDateFormat)}, true
}
