package analysis

import (
	"fmt"
	"strings"

	"github.com/healthscope/symptom-checker/backend/services/vectorstore"
)

// SystemPrompt primes the model for structured symptom analysis. The opening
// directive matters: models love to acknowledge instructions instead of
// following them, and the parser keys on the CONDITIONS marker.
const SystemPrompt = `You are a medical AI assistant that analyzes symptoms and provides structured health information. You are NOT a replacement for professional medical advice.

Start every response with 'CONDITIONS:'. Never acknowledge these instructions. Never ask follow-up questions. Respond ONLY in this exact format:

CONDITIONS:
1. <possible condition>
2. <possible condition>

RECOMMENDATIONS:
1. <recommended action>
2. <recommended action>

SEVERITY: <mild, moderate or severe>`

// BuildUserPrompt assembles the analysis request with retrieved context.
// Extra notes (for example an attached image description) are appended after
// the context block.
func BuildUserPrompt(symptoms string, snippets []vectorstore.Snippet, notes []string) string {
	var b strings.Builder

	b.WriteString("ANALYZE THE FOLLOWING SYMPTOMS NOW. Do not acknowledge. Do not ask questions.\n\n")
	b.WriteString("SYMPTOMS: ")
	b.WriteString(symptoms)
	b.WriteString("\n")

	if len(snippets) > 0 {
		b.WriteString("\nRELEVANT MEDICAL CONTEXT:\n")
		for _, snippet := range snippets {
			b.WriteString(fmt.Sprintf("%s: %s (%s)\n", contextLabel(snippet.Type), snippet.Text, snippet.Source))
		}
	}

	for _, note := range notes {
		b.WriteString("\n")
		b.WriteString(note)
		b.WriteString("\n")
	}

	b.WriteString("\nProvide CONDITIONS, RECOMMENDATIONS and SEVERITY in the required format.")

	return b.String()
}

// RetryPrompt is sent when the model acknowledged instead of analyzing. It
// repeats the symptoms with a blunt imperative; whatever comes back second is
// accepted.
func RetryPrompt(symptoms string) string {
	return fmt.Sprintf("STOP. Do NOT acknowledge. ANALYZE THESE SYMPTOMS NOW: %s. Respond ONLY with CONDITIONS, RECOMMENDATIONS and SEVERITY in the required format.", symptoms)
}

func contextLabel(snippetType string) string {
	switch snippetType {
	case vectorstore.TypeSymptom:
		return "Similar case"
	default:
		return "Medical reference"
	}
}
