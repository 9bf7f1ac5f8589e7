package analysis

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthscope/symptom-checker/backend/internal/observability"
	"github.com/healthscope/symptom-checker/backend/models"
	"github.com/healthscope/symptom-checker/backend/services/vectorstore"
)

// Retrieval depths per snippet type.
const (
	symptomTopK  = 3
	documentTopK = 5
)

// Embedder converts text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	FallbackActive() bool
}

// Input describes one analysis request.
type Input struct {
	Symptoms string
	// Notes carry extra prompt material, such as an attached image summary.
	Notes []string
	// IncludeDocuments additionally retrieves indexed document chunks,
	// placed ahead of the symptom context in the prompt.
	IncludeDocuments bool
}

// Outcome is what an analysis produced, including enough detail for audit
// logging and metrics.
type Outcome struct {
	Analysis        models.SymptomAnalysis
	ContextSnippets int
	Retried         bool
	Stage           string
	Degraded        bool
}

// Service orchestrates the analysis pipeline: embed, retrieve, prompt,
// invoke, parse. It never returns an error; every failure mode degrades to a
// safe default that tells the user to seek professional care.
type Service struct {
	embedder Embedder
	store    vectorstore.Store
	invoker  *Invoker
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewService creates an analysis service.
func NewService(embedder Embedder, store vectorstore.Store, invoker *Invoker, logger *zap.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		embedder: embedder,
		store:    store,
		invoker:  invoker,
		logger:   logger,
		metrics:  metrics,
	}
}

// Analyze runs the full pipeline for one symptom description.
func (s *Service) Analyze(ctx context.Context, input Input) *Outcome {
	snippets := s.retrieveContext(ctx, input.Symptoms, input.IncludeDocuments)

	prompt := BuildUserPrompt(input.Symptoms, snippets, input.Notes)
	s.logger.Debug("built analysis prompt",
		zap.Int("context_snippets", len(snippets)),
		zap.Int("prompt_length", len(prompt)))

	reply, retried, err := s.invoker.Invoke(ctx, prompt, input.Symptoms)
	if retried && s.metrics != nil {
		s.metrics.ModelRetries.Inc()
	}
	if err != nil {
		s.logger.Error("model invocation failed", zap.Bool("retried", retried), zap.Error(err))
		if s.metrics != nil {
			s.metrics.AnalysesTotal.WithLabelValues("failed", string(models.SeverityUnknown)).Inc()
		}
		return &Outcome{
			Analysis:        SafeDefaultAnalysis(),
			ContextSnippets: len(snippets),
			Retried:         retried,
			Degraded:        true,
		}
	}

	result := Parse(reply)
	s.logger.Debug("parsed model reply",
		zap.String("stage", result.Stage),
		zap.Int("conditions", len(result.Analysis.Conditions)),
		zap.Int("recommendations", len(result.Analysis.Recommendations)),
		zap.String("severity", string(result.Analysis.Severity)))

	if s.metrics != nil {
		s.metrics.ParserStageUsed.WithLabelValues(result.Stage).Inc()
		s.metrics.AnalysesTotal.WithLabelValues("completed", string(result.Analysis.Severity)).Inc()
	}

	return &Outcome{
		Analysis:        result.Analysis,
		ContextSnippets: len(snippets),
		Retried:         retried,
		Stage:           result.Stage,
	}
}

// retrieveContext embeds the symptoms, stores the query vector for future
// similarity lookups and fetches the nearest snippets. Document chunks, when
// requested, come first so they lead the context block in the prompt. Every
// failure here is logged and absorbed; an analysis without context is still
// an analysis.
func (s *Service) retrieveContext(ctx context.Context, symptoms string, includeDocuments bool) []vectorstore.Snippet {
	vector, err := s.embedder.Embed(ctx, symptoms)
	if err != nil {
		s.logger.Warn("failed to embed symptoms, proceeding without context", zap.Error(err))
		return nil
	}
	if s.embedder.FallbackActive() && s.metrics != nil {
		s.metrics.EmbeddingFallbacks.Inc()
	}

	var snippets []vectorstore.Snippet
	if includeDocuments {
		docs, err := s.store.Query(ctx, vector, documentTopK, vectorstore.TypeDocument)
		if err != nil {
			s.logger.Warn("document retrieval failed", zap.Error(err))
		} else {
			snippets = docs
		}
	}

	similar, err := s.store.Query(ctx, vector, symptomTopK, vectorstore.TypeSymptom)
	if err != nil {
		s.logger.Warn("context retrieval failed", zap.Error(err))
	} else {
		snippets = append(snippets, similar...)
	}

	// store the query itself afterwards so it never matches its own lookup
	queryID := "symptom_" + uuid.NewString()
	if err := s.store.Upsert(ctx, queryID, vector, vectorstore.Metadata{
		Type:   vectorstore.TypeSymptom,
		Text:   symptoms,
		Source: "user",
	}); err != nil {
		s.logger.Warn("failed to store symptom vector", zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.RetrievalSnippets.Observe(float64(len(snippets)))
	}
	return snippets
}

// SafeDefaultAnalysis is returned when the model could not be reached at all.
func SafeDefaultAnalysis() models.SymptomAnalysis {
	return models.SymptomAnalysis{
		Conditions:      []string{"Unable to analyze symptoms. Please consult a healthcare professional."},
		Recommendations: []string{"Seek immediate medical attention if symptoms are severe."},
		Severity:        models.SeverityUnknown,
	}
}
