package alerts

import (
	"testing"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/study"
)

func testEnv(today string) *Env {
	day, ok := study.ParseDate(today)
	if !ok {
		panic("bad test date " + today)
	}
	return &Env{
		Today:       day,
		Params:      DefaultParams(),
		Communities: map[string]string{"1": "Ndiop", "2": "Diohine"},
		EventNames:  DefaultEventNames,
	}
}

func TestToBeVisitedEligible(t *testing.T) {
	s := study.FromRecords([]map[string]string{
		// Recruited, never visited.
		{"record_id": "1", "redcap_event_name": study.EventRecruitment},
		// Phone follow-up that never succeeded.
		{"record_id": "2", "redcap_event_name": study.EventRecruitment},
		{"record_id": "2", "redcap_event_name": study.EventHHFirstDose, "fu_type": "1", "phone_success": "0"},
		// Call succeeded but a drug reaction was reported.
		{"record_id": "3", "redcap_event_name": study.EventRecruitment},
		{"record_id": "3", "redcap_event_name": study.EventHHFirstDose, "phone_success": "1", "hh_drug_react": "1"},
		// Call succeeded, nothing to chase.
		{"record_id": "4", "redcap_event_name": study.EventRecruitment},
		{"record_id": "4", "redcap_event_name": study.EventHHFirstDose, "phone_success": "1"},
	})

	got := ToBeVisitedEligible(s, testEnv("2023-07-10")).Sorted()
	want := []string{"1", "2", "3"}
	if len(got) != len(want) {
		t.Fatalf("eligible = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("eligible = %v, want %v", got, want)
		}
	}
}

func TestToBeVisitedPayload(t *testing.T) {
	s := study.FromRecords([]map[string]string{
		{"record_id": "1", "redcap_event_name": study.EventRecruitment, "community": "1",
			"int_azi": "1", "int_date": "2023-07-09"},
	})
	env := testEnv("2023-07-10")

	payload, ok := ToBeVisitedPayload(s, "1", env)
	if !ok {
		t.Fatal("expected a payload")
	}
	if got := Render(TemplateTBV, payload); got != "TBV@Ndiop AZi/Pbo@Jul 09" {
		t.Errorf("rendered %q", got)
	}

	// No community recorded yet: skip this pass.
	s = study.FromRecords([]map[string]string{
		{"record_id": "1", "redcap_event_name": study.EventRecruitment, "int_azi": "1", "int_date": "2023-07-09"},
	})
	if _, ok := ToBeVisitedPayload(s, "1", env); ok {
		t.Error("payload without community should be skipped")
	}
}

func TestNextVisitYieldsToTBV(t *testing.T) {
	// Recruited, never visited: owed a household visit, so NV stays quiet
	// even though the return date is inside the window.
	s := study.FromRecords([]map[string]string{
		{"record_id": "1", "redcap_event_name": study.EventRecruitment, "int_next_visit": "2023-07-12"},
	})
	if got := NextVisitEligible(s, testEnv("2023-07-10")); got.Len() != 0 {
		t.Fatalf("TBV-owed participants must not get NV: %v", got.Sorted())
	}
}

func TestNextVisitWindow(t *testing.T) {
	// Window relative to the return date: [-7, 28) days past it.
	rows := []map[string]string{
		{"record_id": "start_in", "redcap_event_name": study.EventRecruitment, "int_next_visit": "2023-07-17"},
		{"record_id": "start_out", "redcap_event_name": study.EventRecruitment, "int_next_visit": "2023-07-18"},
		{"record_id": "end_in", "redcap_event_name": study.EventRecruitment, "int_next_visit": "2023-06-13"},
		{"record_id": "end_out", "redcap_event_name": study.EventRecruitment, "int_next_visit": "2023-06-12"},
	}
	// A successful contact without complaints keeps them off the TBV list.
	for _, id := range []string{"start_in", "start_out", "end_in", "end_out"} {
		rows = append(rows, map[string]string{
			"record_id": id, "redcap_event_name": study.EventHHFirstDose, "phone_success": "1",
		})
	}
	s := study.FromRecords(rows)

	got := NextVisitEligible(s, testEnv("2023-07-10"))
	if !got.Has("start_in") || !got.Has("end_in") {
		t.Errorf("window edges missing: %v", got.Sorted())
	}
	if got.Has("start_out") {
		t.Error("8 days ahead of the window start must be excluded")
	}
	if got.Has("end_out") {
		t.Error("the window end is open: day 28 past the return must be excluded")
	}
}

func TestNonCompliantEligible(t *testing.T) {
	s := study.FromRecords([]map[string]string{
		// 39 days overdue.
		{"record_id": "1", "redcap_event_name": study.EventRecruitment, "community": "1", "int_next_visit": "2023-06-01"},
		// Overdue, but a later home visit already followed up.
		{"record_id": "2", "redcap_event_name": study.EventRecruitment, "int_next_visit": "2023-06-01"},
		{"record_id": "2", "redcap_event_name": "out_of_schedule_arm_1", "comp_date": "2023-06-15"},
		// Overdue, but the EPI schedule is done.
		{"record_id": "3", "redcap_event_name": study.EventRecruitment, "int_next_visit": "2023-06-01"},
		{"record_id": "3", "redcap_event_name": study.EventMRV2, "intervention_complete": "2"},
		// Exactly at the threshold: not yet non-compliant.
		{"record_id": "4", "redcap_event_name": study.EventRecruitment, "int_next_visit": "2023-06-12"},
	})
	env := testEnv("2023-07-10")

	got := NonCompliantEligible(s, env)
	if !got.Has("1") || got.Has("2") || got.Has("3") || got.Has("4") {
		t.Fatalf("eligible = %v, want [1]", got.Sorted())
	}

	payload, ok := NonCompliantPayload(s, "1", env)
	if !ok {
		t.Fatal("expected a payload")
	}
	if got := Render(TemplateNC, payload); got != "NC@Ndiop (5 weeks)" {
		t.Errorf("rendered %q", got)
	}
}

func TestEndFUEligible(t *testing.T) {
	s := study.FromRecords([]map[string]string{
		// Turns 18 months in 5 days.
		{"record_id": "1", "redcap_event_name": study.EventRecruitment, "child_dob": "2022-01-15"},
		// Same age, already confirmed at the 18-month visit.
		{"record_id": "2", "redcap_event_name": study.EventRecruitment, "child_dob": "2022-01-15"},
		{"record_id": "2", "redcap_event_name": study.EventHH18Month,
			"redcap_repeat_instrument": study.InstrumentHouseholdFollowUp, "hh_child_seen": "1"},
		// Too young to alert.
		{"record_id": "3", "redcap_event_name": study.EventRecruitment, "child_dob": "2022-06-15"},
	})
	env := testEnv("2023-07-10")

	got := EndFUEligible(s, env)
	if !got.Has("1") || got.Has("2") || got.Has("3") {
		t.Fatalf("eligible = %v, want [1]", got.Sorted())
	}

	payload, ok := EndFUPayload(s, "1", env)
	if !ok {
		t.Fatal("expected a payload")
	}
	if got := Render(TemplateEndFU, payload); got != "END F/U: Jul 15" {
		t.Errorf("rendered %q", got)
	}
}

func TestCompletedAndUnreachableAreDisjoint(t *testing.T) {
	s := study.FromRecords([]map[string]string{
		// Confirmed by phone.
		{"record_id": "1", "redcap_event_name": study.EventHH18Month,
			"redcap_repeat_instrument": study.InstrumentHouseholdFollowUp, "phone_child_status": "1"},
		// Unreachable.
		{"record_id": "2", "redcap_event_name": study.EventHH18Month,
			"redcap_repeat_instrument": study.InstrumentHouseholdFollowUp, "phone_child_status": "4"},
		// One failed attempt, then the child was seen: confirmed wins.
		{"record_id": "3", "redcap_event_name": study.EventHH18Month,
			"redcap_repeat_instrument": study.InstrumentHouseholdFollowUp, "phone_child_status": "4"},
		{"record_id": "3", "redcap_event_name": study.EventHH18Month,
			"redcap_repeat_instrument": study.InstrumentHouseholdFollowUp, "hh_child_seen": "1"},
		// A row outside the household instrument does not close anyone out.
		{"record_id": "4", "redcap_event_name": study.EventHH18Month, "phone_child_status": "4"},
	})
	env := testEnv("2023-07-10")

	completed := CompletedEligible(s, env)
	unreachable := UnreachableEligible(s, env)
	if !completed.Has("1") || !completed.Has("3") {
		t.Errorf("completed = %v", completed.Sorted())
	}
	if !unreachable.Has("2") {
		t.Errorf("unreachable = %v", unreachable.Sorted())
	}
	if unreachable.Has("3") {
		t.Error("a confirmed child is never unreachable")
	}
	if unreachable.Has("4") || completed.Has("4") {
		t.Error("rows outside the household instrument must be ignored")
	}
	if completed.Intersect(unreachable).Len() != 0 {
		t.Error("completed and unreachable must be disjoint")
	}
}

func TestMortalityEligible(t *testing.T) {
	s := study.FromRecords([]map[string]string{
		// Last contact 70 days ago.
		{"record_id": "1", "redcap_event_name": study.EventRecruitment, "int_date": "2023-05-01"},
		// Recent contact.
		{"record_id": "2", "redcap_event_name": study.EventRecruitment, "int_date": "2023-07-01"},
		// Old contact, but only at an excluded event.
		{"record_id": "3", "redcap_event_name": study.EventCohortEnd, "hh_date": "2023-07-01"},
		{"record_id": "3", "redcap_event_name": study.EventRecruitment, "int_date": "2023-04-01"},
		// Old contact, follow-up already closed.
		{"record_id": "4", "redcap_event_name": study.EventRecruitment, "int_date": "2023-05-01"},
		{"record_id": "4", "redcap_event_name": study.EventHH18Month, "household_follow_up_complete": "2"},
	})
	env := testEnv("2023-07-10")

	got := MortalityEligible(s, env)
	if !got.Has("1") || !got.Has("3") {
		t.Errorf("eligible = %v, want 1 and 3", got.Sorted())
	}
	if got.Has("2") || got.Has("4") {
		t.Errorf("eligible = %v", got.Sorted())
	}

	payload, ok := MortalityPayload(s, "1", env)
	if !ok {
		t.Fatal("expected a payload")
	}
	if got := Render(TemplateMS, payload); got != "MS: Penta1" {
		t.Errorf("rendered %q", got)
	}
}

func TestAziVacTiers(t *testing.T) {
	s := study.FromRecords([]map[string]string{
		// Two calendar months since the dose: tier 1.
		{"record_id": "1", "redcap_event_name": study.EventRecruitment, "int_azi": "1", "int_date": "2023-05-20"},
		// Four months: tier 2.
		{"record_id": "2", "redcap_event_name": study.EventRecruitment, "int_azi": "1", "int_date": "2023-03-20"},
		// Six months: out of both windows.
		{"record_id": "3", "redcap_event_name": study.EventRecruitment, "int_azi": "1", "int_date": "2023-01-10"},
		// In window but excluded by configuration.
		{"record_id": "4", "redcap_event_name": study.EventRecruitment, "int_azi": "1", "int_date": "2023-05-20"},
	})
	env := testEnv("2023-07-10")
	env.Params.AZVBlocked = []string{"4"}

	tier1 := AziVacTier1Eligible(s, env)
	tier2 := AziVacTier2Eligible(s, env)
	if !tier1.Has("1") || tier1.Len() != 1 {
		t.Errorf("tier1 = %v, want [1]", tier1.Sorted())
	}
	if !tier2.Has("2") || tier2.Len() != 1 {
		t.Errorf("tier2 = %v, want [2]", tier2.Sorted())
	}
}

func TestMRV2Eligible(t *testing.T) {
	s := study.FromRecords([]map[string]string{
		// Turns 15 months in 5 days.
		{"record_id": "1", "redcap_event_name": study.EventRecruitment, "child_dob": "2022-04-15"},
		// Same age, MRV2 already administered.
		{"record_id": "2", "redcap_event_name": study.EventRecruitment, "child_dob": "2022-04-15"},
		{"record_id": "2", "redcap_event_name": study.EventMRV2, "intervention_complete": "2"},
	})
	env := testEnv("2023-07-10")

	got := MRV2Eligible(s, env)
	if !got.Has("1") || got.Has("2") {
		t.Fatalf("eligible = %v, want [1]", got.Sorted())
	}
}

func TestCohortEligible(t *testing.T) {
	s := study.FromRecords([]map[string]string{
		// Sampled, letter still open, just turned 12 months.
		{"record_id": "1", "redcap_event_name": study.EventRecruitment,
			"study_number": "ICA-001", "int_random_letter": "A", "child_dob": "2022-07-12"},
		// Same age but not in the sample.
		{"record_id": "2", "redcap_event_name": study.EventRecruitment,
			"study_number": "ICA-099", "int_random_letter": "A", "child_dob": "2022-07-12"},
		// Sampled, but the letter already met its target.
		{"record_id": "3", "redcap_event_name": study.EventRecruitment,
			"study_number": "ICA-003", "int_random_letter": "B", "child_dob": "2022-07-12"},
		{"record_id": "4", "redcap_event_name": study.EventCohortEndMRV2, "int_random_letter": "B"},
	})
	env := testEnv("2023-07-10")
	env.Params.CohortSample = []CohortMember{
		{StudyNumber: "ICA-001", Letter: "A"},
		{StudyNumber: "ICA-003", Letter: "B"},
	}
	env.Params.CohortTargets = map[string]int{"A": 5, "B": 1}

	got := CohortEligible(s, env)
	if !got.Has("1") || got.Len() != 1 {
		t.Fatalf("eligible = %v, want [1]", got.Sorted())
	}

	// No configured sample disables the rule outright.
	env.Params.CohortSample = nil
	if CohortEligible(s, env).Len() != 0 {
		t.Error("empty sample must disable the cohort rule")
	}
}

func TestBirthWeightEligible(t *testing.T) {
	s := study.FromRecords([]map[string]string{
		{"record_id": "1", "redcap_event_name": study.EventRecruitment},
		{"record_id": "2", "redcap_event_name": study.EventRecruitment, "child_birth_weight_known": "0"},
		{"record_id": "3", "redcap_event_name": study.EventHHFirstDose},
	})
	got := BirthWeightEligible(s, testEnv("2023-07-10"))
	if !got.Has("1") || got.Len() != 1 {
		t.Fatalf("eligible = %v, want [1]", got.Sorted())
	}
}
