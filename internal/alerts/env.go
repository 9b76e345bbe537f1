package alerts

import (
	"time"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"
)

// Params are the static thresholds of the rule set. Zero values are never
// meaningful: build them with DefaultParams and override from configuration.
type Params struct {
	// Event carrying the child_fu_status field (the Screening DCI).
	StatusEvent string

	// Non-Compliant: days past the recorded return date.
	DaysToNC int

	// Next Visit window around the return date: [-DaysBeforeNV, DaysAfterNV).
	DaysBeforeNV int
	DaysAfterNV  int

	// End of trial follow-up at EndFUMonths months of age; alerting starts
	// at EndFUAlertFrom months when the birthday is under DaysBeforeEndFU
	// days away.
	EndFUMonths     int
	EndFUAlertFrom  int
	DaysBeforeEndFU int

	// MRV2 visit at MRV2Months months of age.
	MRV2Months     int
	MRV2AlertFrom  int
	DaysBeforeMRV2 int

	// Mortality surveillance: days without any recorded contact.
	DaysWithoutContact int
	// Events ignored by the mortality surveillance schedule.
	ExcludedMSEvents []string

	// AziVac booster tiers in whole months since the dose.
	AZVTier1From int
	AZVTier1To   int
	AZVTier2To   int
	// Record ids never flagged by the AziVac rule.
	AZVBlocked []string

	// Cohort sub-study.
	CohortMonths    int
	CohortAlertFrom int
	CohortSample    []CohortMember
	CohortTargets   map[string]int

	// Record ids excluded from every rule, on top of custom-status
	// protection.
	BlockedRecords []string
}

// CohortMember identifies one participant of the cohort sub-study sample by
// study number and randomization letter.
type CohortMember struct {
	StudyNumber string `yaml:"study_number"`
	Letter      string `yaml:"letter"`
}

// DefaultParams returns the protocol thresholds: NC after 4 weeks, NV one
// week ahead, end of follow-up at 18 months alerting from 17, MRV2 at 15
// from 14, mortality surveillance after 45 days without contact, AziVac
// tiers at 1-2 and 3-4 months.
func DefaultParams() Params {
	return Params{
		StatusEvent:        study.EventRecruitment,
		DaysToNC:           28,
		DaysBeforeNV:       7,
		DaysAfterNV:        28,
		EndFUMonths:        18,
		EndFUAlertFrom:     17,
		DaysBeforeEndFU:    7,
		MRV2Months:         15,
		MRV2AlertFrom:      14,
		DaysBeforeMRV2:     7,
		DaysWithoutContact: 45,
		ExcludedMSEvents:   []string{study.EventCohortEnd, study.EventCohortEndMRV2},
		AZVTier1From:       1,
		AZVTier1To:         2,
		AZVTier2To:         4,
		CohortMonths:       12,
		CohortAlertFrom:    12,
	}
}

// Env is everything a rule may read besides the snapshot: the injected
// evaluation date, the thresholds, and the code-to-label dictionaries pulled
// from project metadata. Rules are pure functions of (snapshot, env).
type Env struct {
	Today       time.Time
	Params      Params
	Communities map[string]string
	EventNames  map[string]string
}

// CommunityName resolves a community code to its label, falling back to the
// raw code when the metadata does not know it.
func (e *Env) CommunityName(code string) string {
	if name, ok := e.Communities[code]; ok {
		return name
	}
	return code
}

// EventName resolves an event code to its label.
func (e *Env) EventName(code string) string {
	if name, ok := e.EventNames[code]; ok {
		return name
	}
	return code
}

// DefaultEventNames labels the trial schedule events for alert text.
var DefaultEventNames = map[string]string{
	"epipenta1_v0_recru_arm_1":   "Penta1",
	"epipenta2_v1_iptisp2_arm_1": "Penta2",
	"epipenta3_v2_iptisp3_arm_1": "Penta3",
	"epivita_v3_iptisp4_arm_1":   "VitA1",
	"epimvr1_v4_iptisp5_arm_1":   "MRV1",
	"epivita_v5_iptisp5_arm_1":   "VitA2",
	"epimvr2_v6_iptisp6_arm_1":   "MRV2",
	"hhafter_1st_dose_o_arm_1":   "HH after 1st dose",
	"hhat_18th_month_of_arm_1":   "HH at 18th month",
	"after_mrv_2_arm_1":          "After MRV2",
	"cohort_after_mrv_2_arm_1":   "Cohort after MRV2",
	"adverse_events_arm_1":       "AE",
	"out_of_schedule_arm_1":      "Out of schedule",
}
