package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/alerts"
)

// AlertsFile is the per-deployment alert definitions file: which alerts are
// enabled (their priority order stays fixed in code), record-level
// exclusions, template overrides, and the cohort sub-study sample.
type AlertsFile struct {
	Enabled          []string          `yaml:"enabled"`
	StatusEvent      string            `yaml:"status_event"`
	BlockedRecords   []string          `yaml:"blocked_records"`
	AzivacBlocked    []string          `yaml:"azivac_blocked"`
	ExcludedMSEvents []string          `yaml:"excluded_ms_events"`
	Templates        map[string]string `yaml:"templates"`
	EventNames       map[string]string `yaml:"event_names"`
	Cohort           CohortFile        `yaml:"cohort"`
}

// CohortFile configures the cohort sub-study sample and recruitment targets.
type CohortFile struct {
	Sample  []alerts.CohortMember `yaml:"sample"`
	Targets map[string]int        `yaml:"targets"`
}

// LoadAlertsFile reads and parses the YAML definitions file. A missing file
// is not an error: every alert runs with its defaults.
func LoadAlertsFile(path string) (*AlertsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &AlertsFile{}, nil
		}
		return nil, fmt.Errorf("read alerts file: %w", err)
	}
	var f AlertsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse alerts file %s: %w", path, err)
	}
	return &f, nil
}

// Params merges the process config and the definitions file into the rule
// thresholds, file entries winning where both speak.
func (f *AlertsFile) Params(c *Config) alerts.Params {
	p := alerts.DefaultParams()
	p.DaysToNC = c.DaysToNC
	p.DaysBeforeNV = c.DaysBeforeNV
	p.DaysAfterNV = c.DaysAfterNV
	p.DaysBeforeEndFU = c.DaysBeforeEndFU
	p.DaysBeforeMRV2 = c.DaysBeforeMRV2
	p.DaysWithoutContact = c.DaysWithoutContact

	if f.StatusEvent != "" {
		p.StatusEvent = f.StatusEvent
	}
	if len(f.ExcludedMSEvents) > 0 {
		p.ExcludedMSEvents = f.ExcludedMSEvents
	}
	p.BlockedRecords = f.BlockedRecords
	p.AZVBlocked = f.AzivacBlocked
	p.CohortSample = f.Cohort.Sample
	p.CohortTargets = f.Cohort.Targets
	return p
}

// Definitions returns the enabled alert definitions in priority order, with
// template overrides applied.
func (f *AlertsFile) Definitions() []alerts.Definition {
	defs := alerts.Select(alerts.Definitions(), f.Enabled)
	for i := range defs {
		if tpl, ok := f.Templates[defs[i].Code]; ok {
			defs[i].Template = tpl
		}
	}
	return defs
}

// EventNameMap returns the event label dictionary, file entries overriding
// the built-in names.
func (f *AlertsFile) EventNameMap() map[string]string {
	out := make(map[string]string, len(alerts.DefaultEventNames))
	for k, v := range alerts.DefaultEventNames {
		out[k] = v
	}
	for k, v := range f.EventNames {
		out[k] = v
	}
	return out
}
