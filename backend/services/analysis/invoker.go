package analysis

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// ModelClient is the slice of a provider the invoker needs.
type ModelClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ackPhrases are openings that signal the model acknowledged the instructions
// instead of performing the analysis.
var ackPhrases = []string{
	"okay, i understand",
	"i will analyze",
	"i can help",
	"let me analyze",
	"i'll provide",
}

// Invoker calls the model and retries exactly once when the reply is a bare
// acknowledgment rather than an analysis.
type Invoker struct {
	client ModelClient
	logger *zap.Logger
}

// NewInvoker creates an invoker around the given model client.
func NewInvoker(client ModelClient, logger *zap.Logger) *Invoker {
	return &Invoker{client: client, logger: logger}
}

// Invoke sends the prompt and returns the model's reply. An acknowledgment
// reply triggers a single retry with a blunter prompt; whatever the retry
// returns is accepted as-is. Provider failures are returned to the caller.
// The second return value reports whether the retry fired.
func (inv *Invoker) Invoke(ctx context.Context, userPrompt, symptoms string) (string, bool, error) {
	reply, err := inv.client.Complete(ctx, SystemPrompt, userPrompt)
	if err != nil {
		return "", false, err
	}

	if !isAcknowledgment(reply) {
		return reply, false, nil
	}

	inv.logger.Debug("model acknowledged instead of analyzing, retrying once",
		zap.Int("reply_length", len(reply)))

	retryReply, err := inv.client.Complete(ctx, SystemPrompt, RetryPrompt(symptoms))
	if err != nil {
		return "", true, err
	}

	return retryReply, true, nil
}

// isAcknowledgment reports whether the reply is too short to be an analysis
// or opens with a known acknowledgment phrase without containing the
// CONDITIONS marker anywhere.
func isAcknowledgment(reply string) bool {
	trimmed := strings.TrimSpace(reply)
	if len(trimmed) < 10 {
		return true
	}

	head := strings.ToLower(trimmed)
	if len(head) > 200 {
		head = head[:200]
	}

	for _, phrase := range ackPhrases {
		if strings.Contains(head, phrase) {
			return !strings.Contains(strings.ToUpper(reply), "CONDITIONS:")
		}
	}

	return false
}
