package models

import "time"

// State of the change judge for one check
type State string

const (
	StateBaseline               State = "BASELINE"
	StateUnchanged              State = "UNCHANGED"
	StateLowLevelDiffUnverified State = "LOW_LEVEL_DIFF_UNVERIFIED"
	StateVerifiedChanged        State = "VERIFIED_CHANGED"
	StateVerifiedUnchanged      State = "VERIFIED_UNCHANGED"
)

// Judgment is what a verifier returns
type Judgment struct {
	HasChanges     bool     `json:"has_changes"`
	Confidence     float64  `json:"confidence"`
	Description    string   `json:"description"`
	NewlySeenItems []string `json:"newly_seen_items,omitempty"`
	Details        []string `json:"details,omitempty"`
}

// Verdict is the final decision for one target in one run. Never persisted.
type Verdict struct {
	Target     string  `json:"target"`
	URL        string  `json:"url"`
	State      State   `json:"state"`
	Changed    bool    `json:"changed"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	//Verifier names the verifier that produced Confidence, empty if none ran
	Verifier       string   `json:"verifier,omitempty"`
	NewlySeenItems []string `json:"newly_seen_items,omitempty"`
	//Recorded lists the items this check added to the ledger, whatever the state
	Recorded []string `json:"recorded,omitempty"`
	Details  []string `json:"details,omitempty"`
	//ChangeRatio is the percentage of changed pixels (image targets)
	ChangeRatio float64 `json:"change_ratio,omitempty"`
	FirstRun    bool    `json:"first_run,omitempty"`
	Unstable    bool    `json:"unstable,omitempty"`

	Error        bool   `json:"error,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CheckedAt time.Time     `json:"checked_at"`
	Duration  time.Duration `json:"duration"`
}

// ErrorVerdict builds the non-fatal verdict used when a target could not be checked
func ErrorVerdict(t Target, err error) Verdict {
	return Verdict{
		Target:       t.Name,
		URL:          t.URL,
		Changed:      false,
		Reason:       "check failed",
		Error:        true,
		ErrorMessage: err.Error(),
		CheckedAt:    time.Now().UTC(),
	}
}
