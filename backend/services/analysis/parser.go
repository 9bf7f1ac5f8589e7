package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"

	"github.com/healthscope/symptom-checker/backend/models"
)

// Parse stage labels, in waterfall order.
const (
	StageJSON     = "json"
	StageLines    = "lines"
	StageRegex    = "regex"
	StageFallback = "fallback"
)

// Static fallbacks used when nothing could be extracted from the reply.
const (
	fallbackCondition      = "Consult a healthcare professional for proper diagnosis"
	fallbackRecommendation = "Seek professional medical advice from a qualified healthcare provider"
)

var (
	numberedItemRe = regexp.MustCompile(`^\d+[.)]\s+(.+)`)
	bulletItemRe   = regexp.MustCompile(`^[-•*]\s+(.+)`)

	conditionPhraseRe = regexp.MustCompile(`(?i)(?:possible|likely|probable|potential)\s+(?:condition|diagnosis|disease|illness)s?[:\s]+([^.\n]+)`)
	conditionGuessRe  = regexp.MustCompile(`(?i:could be|might be|may be)\s+([A-Z][^.\n]+)`)

	recommendPhraseRe = regexp.MustCompile(`(?i)(?:recommend|suggest|advise|should|next step)s?[:\s]+([^.\n]+)`)
	recommendVerbRe   = regexp.MustCompile(`(?i)(?:see|consult|visit|contact)\s+([^.\n]+)`)
)

// ParseResult is the outcome of parsing one model reply.
type ParseResult struct {
	Analysis models.SymptomAnalysis
	// Stage is the first waterfall stage that extracted any content.
	Stage string
}

// Parse extracts a structured analysis from a model reply. Four stages run in
// order, each only filling lists still empty: a JSON block, structured line
// scanning, sentence-level regexes, and finally static safe text. Parsing
// never fails; the result always has 1 to 5 items per list and a severity.
func Parse(text string) ParseResult {
	result := ParseResult{Stage: StageFallback}
	analysis := &result.Analysis

	if parsed, ok := parseJSONBlock(text); ok {
		analysis.Conditions = parsed.Conditions
		analysis.Recommendations = parsed.Recommendations
		analysis.Severity = parsed.Severity
		if len(analysis.Conditions) > 0 || len(analysis.Recommendations) > 0 {
			result.Stage = StageJSON
		}
	}

	if len(analysis.Conditions) == 0 || len(analysis.Recommendations) == 0 || analysis.Severity == "" {
		conditions, recommendations, severity := parseLines(text)
		if len(analysis.Conditions) == 0 && len(conditions) > 0 {
			analysis.Conditions = conditions
			if result.Stage == StageFallback {
				result.Stage = StageLines
			}
		}
		if len(analysis.Recommendations) == 0 && len(recommendations) > 0 {
			analysis.Recommendations = recommendations
			if result.Stage == StageFallback {
				result.Stage = StageLines
			}
		}
		if analysis.Severity == "" {
			analysis.Severity = severity
		}
	}

	if len(analysis.Conditions) == 0 {
		if conditions := extractByPatterns(text, conditionPhraseRe, conditionGuessRe); len(conditions) > 0 {
			analysis.Conditions = conditions
			if result.Stage == StageFallback {
				result.Stage = StageRegex
			}
		}
	}
	if len(analysis.Recommendations) == 0 {
		if recommendations := extractByPatterns(text, recommendPhraseRe, recommendVerbRe); len(recommendations) > 0 {
			analysis.Recommendations = recommendations
			if result.Stage == StageFallback {
				result.Stage = StageRegex
			}
		}
	}

	if len(analysis.Conditions) == 0 {
		analysis.Conditions = []string{fallbackCondition}
	}
	if len(analysis.Recommendations) == 0 {
		analysis.Recommendations = []string{fallbackRecommendation}
	}
	if analysis.Severity == "" {
		analysis.Severity = models.SeverityModerate
	}

	analysis.Clamp()
	return result
}

type jsonAnalysis struct {
	Conditions         []string `json:"conditions"`
	Recommendations    []string `json:"recommendations"`
	SeverityAssessment string   `json:"severity_assessment"`
	Severity           string   `json:"severity"`
}

type parsedBlock struct {
	Conditions      []string
	Recommendations []string
	Severity        models.Severity
}

// parseJSONBlock finds the first balanced JSON object mentioning conditions
// and decodes it. Single quotes are normalized to double quotes first since
// models frequently emit Python-style dicts.
func parseJSONBlock(text string) (parsedBlock, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}

		depth := 0
		for i := start; i < len(text); i++ {
			switch text[i] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				candidate := text[start : i+1]
				if strings.Contains(candidate, "conditions") {
					if block, ok := decodeAnalysisJSON(candidate); ok {
						return block, true
					}
				}
				break
			}
		}
	}

	return parsedBlock{}, false
}

func decodeAnalysisJSON(candidate string) (parsedBlock, bool) {
	var parsed jsonAnalysis
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		normalized := strings.ReplaceAll(candidate, "'", "\"")
		if err := json.Unmarshal([]byte(normalized), &parsed); err != nil {
			return parsedBlock{}, false
		}
	}

	block := parsedBlock{
		Conditions:      capItems(parsed.Conditions),
		Recommendations: capItems(parsed.Recommendations),
	}

	severityText := parsed.SeverityAssessment
	if severityText == "" {
		severityText = parsed.Severity
	}
	if severity := models.Severity(strings.ToLower(strings.TrimSpace(severityText))); severity.IsValid() {
		block.Severity = severity
	}

	if len(block.Conditions) == 0 && len(block.Recommendations) == 0 && block.Severity == "" {
		return parsedBlock{}, false
	}
	return block, true
}

// parseLines walks the reply line by line, tracking which section headers
// have been seen and collecting numbered, bulleted and plain-prose items.
// For severity the last mention wins.
func parseLines(text string) (conditions, recommendations []string, severity models.Severity) {
	section := ""

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		if strings.Contains(lower, "condition") &&
			(strings.Contains(line, ":") || strings.HasPrefix(lower, "condition")) {
			section = "conditions"
			continue
		}
		if (strings.Contains(lower, "recommendation") || strings.Contains(lower, "next step")) &&
			(strings.Contains(line, ":") || strings.HasPrefix(lower, "recommendation") ||
				strings.HasPrefix(lower, "next step")) {
			section = "recommendations"
			continue
		}
		if strings.Contains(lower, "severity") {
			if s, ok := lastSeverityKeyword(lower); ok {
				severity = s
			}
			continue
		}

		item := ""
		if m := numberedItemRe.FindStringSubmatch(line); m != nil {
			item = m[1]
		} else if m := bulletItemRe.FindStringSubmatch(line); m != nil {
			item = m[1]
		} else if isPlainItem(line) {
			item = line
		}

		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		switch section {
		case "conditions":
			if len(conditions) < models.MaxListItems {
				conditions = append(conditions, item)
			}
		case "recommendations":
			if len(recommendations) < models.MaxListItems {
				recommendations = append(recommendations, item)
			}
		}
	}

	return conditions, recommendations, severity
}

// lastSeverityKeyword picks the severity keyword mentioned last in the line,
// so "mild, upgraded to severe" reads as severe.
func lastSeverityKeyword(lower string) (models.Severity, bool) {
	best := -1
	var found models.Severity
	for _, candidate := range []struct {
		keyword  string
		severity models.Severity
	}{
		{"mild", models.SeverityMild},
		{"moderate", models.SeverityModerate},
		{"severe", models.SeveritySevere},
	} {
		if idx := strings.LastIndex(lower, candidate.keyword); idx > best {
			best = idx
			found = candidate.severity
		}
	}
	return found, best >= 0
}

// isPlainItem accepts prose lines that look like content rather than headers:
// long enough, starting with a capital, and not shouted entirely in caps.
func isPlainItem(line string) bool {
	if len(line) <= 10 {
		return false
	}
	if line == strings.ToUpper(line) {
		return false
	}
	first := []rune(line)[0]
	return unicode.IsUpper(first)
}

// extractByPatterns collects capture groups from the given regexes.
func extractByPatterns(text string, patterns ...*regexp.Regexp) []string {
	var items []string
	for _, pattern := range patterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			item := strings.TrimSpace(match[1])
			if len(item) <= 5 {
				continue
			}
			items = append(items, item)
			if len(items) >= models.MaxListItems {
				return items
			}
		}
	}
	return items
}

// capItems trims entries, drops empty ones and caps the list. Well-typed JSON
// content is adopted as-is; only the structure is bounded.
func capItems(items []string) []string {
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) >= models.MaxListItems {
			break
		}
	}
	return out
}
