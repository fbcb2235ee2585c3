package models

import (
	"regexp"
	"strings"
)

// Mode selects how an observation is obtained for a target
type Mode string

const (
	ModeHTTP       Mode = "http"
	ModeBrowser    Mode = "browser"
	ModeScreenshot Mode = "screenshot"
)

const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
)

const (
	VerifierAuto   = "auto"
	VerifierNone   = "none"
	VerifierItems  = "items"
	VerifierGemini = "gemini"
	VerifierGroq   = "groq"
)

// Target is one monitored career page. Immutable during a run.
type Target struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	URL  string `yaml:"url" json:"url" validate:"required,url"`
	Mode Mode   `yaml:"mode" json:"mode" validate:"omitempty,oneof=http browser screenshot"`
	//browser modes only
	Engine string `yaml:"engine" json:"engine,omitempty" validate:"omitempty,oneof=playwright chromedp"`

	//listings container, first visible match wins
	Selectors    []string `yaml:"selectors" json:"selectors,omitempty"`
	ItemSelector string   `yaml:"item_selector" json:"item_selector,omitempty"`

	IncludeKeywords []string `yaml:"include_keywords" json:"include_keywords,omitempty"`
	ExcludeKeywords []string `yaml:"exclude_keywords" json:"exclude_keywords,omitempty"`

	Verifier            string  `yaml:"verifier" json:"verifier" validate:"omitempty,oneof=auto none items gemini groq"`
	ChangeThreshold     float64 `yaml:"change_threshold" json:"change_threshold,omitempty" validate:"gte=0,lte=100"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold,omitempty" validate:"gte=0,lte=1"`

	CookiesFile string `yaml:"cookies_file" json:"-"`
	Slot        string `yaml:"slot" json:"slot" validate:"omitempty,slot"`
}

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a target name into a storage-safe slot prefix
func Slugify(name string) string {
	s := slugRegex.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(s, "_")
}

// SlotPrefix is the configured slot or the slugified name
func (t Target) SlotPrefix() string {
	if t.Slot != "" {
		return t.Slot
	}
	return Slugify(t.Name)
}

func (t Target) FingerprintSlot() string { return t.SlotPrefix() + ".fingerprint" }
func (t Target) ObservationSlot() string { return t.SlotPrefix() + ".observation" }
func (t Target) LedgerSlot() string      { return t.SlotPrefix() + ".ledger" }

// IsImage reports whether the target is compared by screenshot
func (t Target) IsImage() bool {
	return t.Mode == ModeScreenshot
}
