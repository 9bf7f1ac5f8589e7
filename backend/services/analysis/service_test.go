package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthscope/symptom-checker/backend/internal/observability"
	"github.com/healthscope/symptom-checker/backend/models"
	"github.com/healthscope/symptom-checker/backend/services/embedding"
	"github.com/healthscope/symptom-checker/backend/services/vectorstore"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding backend down")
}

func (failingEmbedder) FallbackActive() bool { return false }

func newTestService(t *testing.T, client ModelClient) (*Service, *vectorstore.MemoryStore) {
	t.Helper()

	embedder, err := embedding.NewService(embedding.Config{Dimensions: 32}, nil, zap.NewNop())
	require.NoError(t, err)

	store := vectorstore.NewMemoryStore()
	invoker := NewInvoker(client, zap.NewNop())
	svc := NewService(embedder, store, invoker, zap.NewNop(), observability.NewMetrics())
	return svc, store
}

func TestService_Analyze(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"CONDITIONS:\n1. Tension headache\n\nRECOMMENDATIONS:\n1. Rest in a dark room\n\nSEVERITY: mild",
	}}
	svc, store := newTestService(t, client)

	outcome := svc.Analyze(context.Background(), Input{Symptoms: "throbbing headache since morning"})

	require.NotNil(t, outcome)
	assert.False(t, outcome.Degraded)
	assert.Equal(t, StageLines, outcome.Stage)
	assert.Equal(t, []string{"Tension headache"}, outcome.Analysis.Conditions)
	assert.Equal(t, models.SeverityMild, outcome.Analysis.Severity)

	// the query itself was indexed for future similarity lookups
	assert.Equal(t, 1, store.Len())
}

func TestService_Analyze_UsesRetrievedContext(t *testing.T) {
	client := &scriptedClient{replies: []string{"CONDITIONS:\n1. Cluster headache"}}
	svc, store := newTestService(t, client)

	ctx := context.Background()
	vec := embedding.HashVector("headache reference text", 32)
	require.NoError(t, store.Upsert(ctx, "doc_chunk_0", vec, vectorstore.Metadata{
		Type: vectorstore.TypeDocument, Text: "Cluster headaches present unilaterally.", Source: "neuro.pdf",
	}))

	outcome := svc.Analyze(ctx, Input{Symptoms: "headache behind one eye", IncludeDocuments: true})

	assert.Equal(t, 1, outcome.ContextSnippets)
	assert.Contains(t, client.prompts[0], "Cluster headaches present unilaterally.")
	assert.Contains(t, client.prompts[0], "neuro.pdf")
}

func TestService_Analyze_DocumentRetrievalIsOptIn(t *testing.T) {
	client := &scriptedClient{replies: []string{"CONDITIONS:\n1. Cluster headache"}}
	svc, store := newTestService(t, client)

	ctx := context.Background()
	vec := embedding.HashVector("headache reference text", 32)
	require.NoError(t, store.Upsert(ctx, "doc_chunk_0", vec, vectorstore.Metadata{
		Type: vectorstore.TypeDocument, Text: "Cluster headaches present unilaterally.", Source: "neuro.pdf",
	}))

	outcome := svc.Analyze(ctx, Input{Symptoms: "headache behind one eye"})

	assert.Equal(t, 0, outcome.ContextSnippets)
	assert.NotContains(t, client.prompts[0], "neuro.pdf")
}

func TestService_Analyze_FusesDocumentAndSymptomContext(t *testing.T) {
	client := &scriptedClient{replies: []string{"CONDITIONS:\n1. Cluster headache"}}
	svc, store := newTestService(t, client)

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		vec := embedding.HashVector(fmt.Sprintf("reference text %d", i), 32)
		require.NoError(t, store.Upsert(ctx, fmt.Sprintf("doc_chunk_%d", i), vec, vectorstore.Metadata{
			Type: vectorstore.TypeDocument, Text: fmt.Sprintf("Document excerpt %d.", i), Source: "ref.pdf",
		}))
	}
	for i := 0; i < 4; i++ {
		vec := embedding.HashVector(fmt.Sprintf("earlier symptoms %d", i), 32)
		require.NoError(t, store.Upsert(ctx, fmt.Sprintf("symptom_%d", i), vec, vectorstore.Metadata{
			Type: vectorstore.TypeSymptom, Text: fmt.Sprintf("Earlier report %d.", i), Source: "user",
		}))
	}

	outcome := svc.Analyze(ctx, Input{Symptoms: "headache behind one eye", IncludeDocuments: true})

	// five document chunks plus three similar symptoms
	assert.Equal(t, 8, outcome.ContextSnippets)

	prompt := client.prompts[0]
	docIdx := strings.Index(prompt, "Document excerpt")
	symIdx := strings.Index(prompt, "Earlier report")
	require.GreaterOrEqual(t, docIdx, 0)
	require.GreaterOrEqual(t, symIdx, 0)
	assert.Less(t, docIdx, symIdx, "document context comes first")
}

func TestService_Analyze_NotesAppendedToPrompt(t *testing.T) {
	client := &scriptedClient{replies: []string{"CONDITIONS:\n1. Contact dermatitis"}}
	svc, _ := newTestService(t, client)

	svc.Analyze(context.Background(), Input{
		Symptoms: "itchy red rash on forearm",
		Notes:    []string{"An image was attached (rash.png, png 640x480)."},
	})

	assert.Contains(t, client.prompts[0], "rash.png")
}

func TestService_Analyze_InvocationFailureYieldsSafeDefault(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("provider down")}}
	svc, _ := newTestService(t, client)

	outcome := svc.Analyze(context.Background(), Input{Symptoms: "chest tightness"})

	require.NotNil(t, outcome)
	assert.True(t, outcome.Degraded)
	assert.Equal(t, SafeDefaultAnalysis(), outcome.Analysis)
	assert.Equal(t, models.SeverityUnknown, outcome.Analysis.Severity)
}

func TestService_Analyze_EmbeddingFailureStillAnalyzes(t *testing.T) {
	client := &scriptedClient{replies: []string{"CONDITIONS:\n1. Muscle strain"}}

	store := vectorstore.NewMemoryStore()
	invoker := NewInvoker(client, zap.NewNop())
	svc := NewService(failingEmbedder{}, store, invoker, zap.NewNop(), observability.NewMetrics())

	outcome := svc.Analyze(context.Background(), Input{Symptoms: "sore back after lifting"})

	assert.False(t, outcome.Degraded)
	assert.Equal(t, 0, outcome.ContextSnippets)
	assert.Equal(t, []string{"Muscle strain"}, outcome.Analysis.Conditions)
	assert.Equal(t, 0, store.Len(), "nothing indexed without a vector")
}

func TestService_Analyze_RetryPathRecorded(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"I will analyze the symptoms right away.",
		"CONDITIONS:\n1. Seasonal allergies",
	}}
	svc, _ := newTestService(t, client)

	outcome := svc.Analyze(context.Background(), Input{Symptoms: "sneezing and itchy eyes"})

	assert.True(t, outcome.Retried)
	assert.False(t, outcome.Degraded)
	assert.Equal(t, []string{"Seasonal allergies"}, outcome.Analysis.Conditions)
}

func TestSafeDefaultAnalysis(t *testing.T) {
	analysis := SafeDefaultAnalysis()

	assert.Len(t, analysis.Conditions, 1)
	assert.Contains(t, analysis.Conditions[0], "consult a healthcare professional")
	assert.Len(t, analysis.Recommendations, 1)
	assert.Equal(t, models.SeverityUnknown, analysis.Severity)
}
