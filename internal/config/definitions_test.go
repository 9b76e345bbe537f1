package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/alerts"
)

const sampleAlertsYAML = `
enabled: [TBV, NC, END F/U]
status_event: epipenta1_v0_recru_arm_1
blocked_records: ["17", "102"]
azivac_blocked: ["9"]
excluded_ms_events: [after_mrv_2_arm_1]
templates:
  TBV: "VISIT {{community}}"
event_names:
  custom_event_arm_1: Custom
cohort:
  sample:
    - study_number: ICA-001
      letter: A
  targets:
    A: 30
`

func writeAlertsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAlertsFile(t *testing.T) {
	f, err := LoadAlertsFile(writeAlertsFile(t, sampleAlertsYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Enabled) != 3 || f.Enabled[0] != "TBV" {
		t.Errorf("enabled = %v", f.Enabled)
	}
	if len(f.Cohort.Sample) != 1 || f.Cohort.Sample[0].StudyNumber != "ICA-001" {
		t.Errorf("cohort sample = %+v", f.Cohort.Sample)
	}
	if f.Cohort.Targets["A"] != 30 {
		t.Errorf("cohort targets = %v", f.Cohort.Targets)
	}

	defs := f.Definitions()
	if len(defs) != 3 {
		t.Fatalf("got %d definitions", len(defs))
	}
	// Canonical priority order is preserved regardless of the file order.
	if defs[0].Code != alerts.CodeNC || defs[1].Code != alerts.CodeTBV || defs[2].Code != alerts.CodeEndFU {
		t.Errorf("order = %s, %s, %s", defs[0].Code, defs[1].Code, defs[2].Code)
	}
	for _, d := range defs {
		if d.Code == alerts.CodeTBV && d.Template != "VISIT {{community}}" {
			t.Errorf("TBV template override not applied: %q", d.Template)
		}
	}
}

func TestLoadAlertsFileMissing(t *testing.T) {
	f, err := LoadAlertsFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("a missing file must not be an error: %v", err)
	}
	if len(f.Definitions()) != len(alerts.Definitions()) {
		t.Error("missing file should enable the full alert set")
	}
}

func TestAlertsFileParams(t *testing.T) {
	f, err := LoadAlertsFile(writeAlertsFile(t, sampleAlertsYAML))
	if err != nil {
		t.Fatal(err)
	}
	cfg := &Config{DaysToNC: 35, DaysBeforeNV: 5, DaysAfterNV: 20,
		DaysBeforeEndFU: 10, DaysBeforeMRV2: 10, DaysWithoutContact: 60}

	p := f.Params(cfg)
	if p.DaysToNC != 35 || p.DaysWithoutContact != 60 {
		t.Errorf("thresholds not merged: %+v", p)
	}
	if len(p.BlockedRecords) != 2 || p.BlockedRecords[0] != "17" {
		t.Errorf("blocked records = %v", p.BlockedRecords)
	}
	if len(p.ExcludedMSEvents) != 1 || p.ExcludedMSEvents[0] != "after_mrv_2_arm_1" {
		t.Errorf("excluded events = %v", p.ExcludedMSEvents)
	}
	if len(p.AZVBlocked) != 1 || p.AZVBlocked[0] != "9" {
		t.Errorf("azivac blocked = %v", p.AZVBlocked)
	}
}

func TestShippedFileKeepsMortalityExclusions(t *testing.T) {
	f, err := LoadAlertsFile("../../alerts.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := &Config{DaysToNC: 28, DaysBeforeNV: 7, DaysAfterNV: 28,
		DaysBeforeEndFU: 7, DaysBeforeMRV2: 7, DaysWithoutContact: 45}
	p := f.Params(cfg)

	excluded := make(map[string]bool, len(p.ExcludedMSEvents))
	for _, ev := range p.ExcludedMSEvents {
		excluded[ev] = true
	}
	for _, want := range []string{"after_mrv_2_arm_1", "cohort_after_mrv_2_arm_1"} {
		if !excluded[want] {
			t.Errorf("mortality surveillance must ignore %s, got %v", want, p.ExcludedMSEvents)
		}
	}
}

func TestEventNameMapOverrides(t *testing.T) {
	f, err := LoadAlertsFile(writeAlertsFile(t, sampleAlertsYAML))
	if err != nil {
		t.Fatal(err)
	}
	names := f.EventNameMap()
	if names["custom_event_arm_1"] != "Custom" {
		t.Error("file entry not merged")
	}
	if names["epipenta1_v0_recru_arm_1"] != "Penta1" {
		t.Error("built-in names lost")
	}
}
