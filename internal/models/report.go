package models

import "time"

// ChangedTarget is one entry of the aggregate notification
type ChangedTarget struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
	//Confidence is nil when no verifier produced the verdict
	Confidence  *float64 `json:"confidence,omitempty"`
	Details     []string `json:"details,omitempty"`
	NewItems    []string `json:"new_items,omitempty"`
	ChangeRatio float64  `json:"change_ratio,omitempty"`
	Unstable    bool     `json:"unstable,omitempty"`
}

type FirstSeenTarget struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type TargetError struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Report is the single aggregate notification payload of a run
type Report struct {
	RunID            string            `json:"run_id"`
	CheckedAt        time.Time         `json:"checked_at"`
	TargetsChanged   []ChangedTarget   `json:"targets_changed"`
	TargetsFirstSeen []FirstSeenTarget `json:"targets_first_seen"`
	Errors           []TargetError     `json:"errors"`
	ChangeThreshold  float64           `json:"change_threshold"`
	AIEnabled        bool              `json:"ai_enabled"`
}

// ShouldNotify reports whether the report carries anything worth sending
func (r Report) ShouldNotify(includeErrors bool) bool {
	if len(r.TargetsChanged) > 0 || len(r.TargetsFirstSeen) > 0 {
		return true
	}
	return includeErrors && len(r.Errors) > 0
}

// BuildReport aggregates the verdicts of a run after all checks joined
func BuildReport(runID string, verdicts []Verdict) Report {
	report := Report{
		RunID:     runID,
		CheckedAt: time.Now().UTC(),
	}
	for _, v := range verdicts {
		switch {
		case v.Error:
			report.Errors = append(report.Errors, TargetError{Name: v.Target, Reason: v.ErrorMessage})
		case v.Changed:
			entry := ChangedTarget{
				Name:        v.Target,
				URL:         v.URL,
				Reason:      v.Reason,
				Details:     v.Details,
				NewItems:    v.NewlySeenItems,
				ChangeRatio: v.ChangeRatio,
				Unstable:    v.Unstable,
			}
			if v.Verifier != "" {
				c := v.Confidence
				entry.Confidence = &c
			}
			report.TargetsChanged = append(report.TargetsChanged, entry)
		case v.FirstRun:
			report.TargetsFirstSeen = append(report.TargetsFirstSeen, FirstSeenTarget{Name: v.Target, URL: v.URL})
		}
	}
	return report
}

// TargetStatus is the per-target summary kept in the run state
type TargetStatus struct {
	LastState   State     `json:"last_state"`
	LastChanged time.Time `json:"last_changed,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// RunState is persisted after every run
type RunState struct {
	RunID           string                  `json:"run_id"`
	LastCheck       time.Time               `json:"last_check"`
	TotalChecks     int                     `json:"total_checks"`
	ChangeThreshold float64                 `json:"change_threshold"`
	Targets         map[string]TargetStatus `json:"targets"`
}

// RunResult is what a watcher run hands back to the caller
type RunResult struct {
	RunID    string
	Verdicts []Verdict
	Report   Report
	Notified bool
	State    RunState
}
