package models

// Severity is the triage level assigned to an analysis.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityUnknown  Severity = "unknown"
)

// IsValid reports whether s is one of the defined severity levels.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere, SeverityUnknown:
		return true
	}
	return false
}

// SymptomAnalysis is the structured result of analyzing a symptom description.
// Conditions and Recommendations each hold between one and five entries.
type SymptomAnalysis struct {
	Conditions      []string `json:"conditions"`
	Recommendations []string `json:"recommendations"`
	Severity        Severity `json:"severity_assessment"`
}

// MaxListItems bounds the condition and recommendation lists.
const MaxListItems = 5

// Clamp truncates the lists to MaxListItems entries and normalizes an
// unrecognized severity to unknown.
func (a *SymptomAnalysis) Clamp() {
	if len(a.Conditions) > MaxListItems {
		a.Conditions = a.Conditions[:MaxListItems]
	}
	if len(a.Recommendations) > MaxListItems {
		a.Recommendations = a.Recommendations[:MaxListItems]
	}
	if !a.Severity.IsValid() {
		a.Severity = SeverityUnknown
	}
}
