// Package study models a snapshot of the participant-visit table exported
// from a REDCap trial project. Every row is keyed by (record id, event name);
// a participant owns several rows, one per study event she has reached.
package study

import "time"

// Event names of the ICARIA trial schedule referenced by the alert rules.
const (
	EventRecruitment   = "epipenta1_v0_recru_arm_1"
	EventHHFirstDose   = "hhafter_1st_dose_o_arm_1"
	EventMRV2          = "epimvr2_v6_iptisp6_arm_1"
	EventHH18Month     = "hhat_18th_month_of_arm_1"
	EventCohortEnd     = "after_mrv_2_arm_1"
	EventCohortEndMRV2 = "cohort_after_mrv_2_arm_1"
)

// InstrumentHouseholdFollowUp is the repeating instrument holding household
// follow-up contact attempts.
const InstrumentHouseholdFollowUp = "household_follow_up"

// Form-complete status meaning the instrument was marked Complete in REDCap.
const FormComplete = 2

// Phone contact outcomes recorded in phone_child_status.
const (
	PhoneChildSeen        = 1
	PhoneChildUnreachable = 4
)

// Row is one (record id, event) row of the project export, restricted to the
// fields the alert logic reads. Pointer fields are nil when the cell was
// empty in REDCap.
type Row struct {
	RecordID         string
	Event            string
	RepeatInstrument string

	Community      string
	StudyNumber    string
	RandomLetter   string
	FollowUpStatus string

	AziDose              *int
	ChildSeen            *int
	FollowUpType         *int
	PhoneSuccess         *int
	DrugReaction         *int
	HealthComplaint      *int
	PhoneChildStatus     *int
	InterventionComplete *int
	HouseholdComplete    *int
	TestsComplete        *int
	BirthWeightKnown     *int

	InterventionDate     *time.Time
	NextVisitDate        *time.Time
	ChildDOB             *time.Time
	MortalityContactDate *time.Time
	HouseholdDate        *time.Time
	AEDate               *time.Time
	SAEAwarenessDate     *time.Time
	MSDate               *time.Time
	UnschDate            *time.Time
	MigrationDate        *time.Time
	NonCompliantDate     *time.Time
	ClinicalHistoryDate  *time.Time
}

// Field names of the REDCap project consumed by the alert logic. The export
// request is restricted to these so a full-project dump is never pulled.
var AlertLogicFields = []string{
	"record_id", "redcap_event_name", "redcap_repeat_instrument",
	"community", "study_number", "int_random_letter", "child_fu_status",
	"int_azi", "hh_child_seen", "fu_type", "phone_success", "hh_drug_react",
	"hh_health_complaint", "phone_child_status", "intervention_complete",
	"household_follow_up_complete", "tests_complete", "child_birth_weight_known",
	"int_date", "int_next_visit", "child_dob", "a1m_date", "hh_date",
	"ae_date", "sae_awareness_date", "ms_date", "unsch_date", "mig_date",
	"comp_date", "ch_his_date",
}

// ParseRow builds a typed Row from one flat export record. Unparsable or
// blank cells become nil; they never fail the row.
func ParseRow(rec map[string]string) Row {
	r := Row{
		RecordID:         rec["record_id"],
		Event:            rec["redcap_event_name"],
		RepeatInstrument: rec["redcap_repeat_instrument"],
		Community:        rec["community"],
		StudyNumber:      rec["study_number"],
		RandomLetter:     rec["int_random_letter"],
		FollowUpStatus:   rec["child_fu_status"],
	}

	r.AziDose = parseIntPtr(rec["int_azi"])
	r.ChildSeen = parseIntPtr(rec["hh_child_seen"])
	r.FollowUpType = parseIntPtr(rec["fu_type"])
	r.PhoneSuccess = parseIntPtr(rec["phone_success"])
	r.DrugReaction = parseIntPtr(rec["hh_drug_react"])
	r.HealthComplaint = parseIntPtr(rec["hh_health_complaint"])
	r.PhoneChildStatus = parseIntPtr(rec["phone_child_status"])
	r.InterventionComplete = parseIntPtr(rec["intervention_complete"])
	r.HouseholdComplete = parseIntPtr(rec["household_follow_up_complete"])
	r.TestsComplete = parseIntPtr(rec["tests_complete"])
	r.BirthWeightKnown = parseIntPtr(rec["child_birth_weight_known"])

	r.InterventionDate = parseDatePtr(rec["int_date"])
	r.NextVisitDate = parseDatePtr(rec["int_next_visit"])
	r.ChildDOB = parseDatePtr(rec["child_dob"])
	r.MortalityContactDate = parseDatePtr(rec["a1m_date"])
	r.HouseholdDate = parseDatePtr(rec["hh_date"])
	r.AEDate = parseDatePtr(rec["ae_date"])
	r.SAEAwarenessDate = parseDatePtr(rec["sae_awareness_date"])
	r.MSDate = parseDatePtr(rec["ms_date"])
	r.UnschDate = parseDatePtr(rec["unsch_date"])
	r.MigrationDate = parseDatePtr(rec["mig_date"])
	r.NonCompliantDate = parseDatePtr(rec["comp_date"])
	r.ClinicalHistoryDate = parseDatePtr(rec["ch_his_date"])

	return r
}

func parseIntPtr(s string) *int {
	v, ok := ParseInt(s)
	if !ok {
		return nil
	}
	return &v
}

func parseDatePtr(s string) *time.Time {
	d, ok := ParseDate(s)
	if !ok {
		return nil
	}
	return &d
}
