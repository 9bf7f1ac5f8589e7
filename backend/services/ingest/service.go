package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/healthscope/symptom-checker/backend/internal/observability"
	"github.com/healthscope/symptom-checker/backend/services"
	"github.com/healthscope/symptom-checker/backend/services/vectorstore"
)

// Embedder converts text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service chunks documents, embeds each chunk and stores the vectors.
type Service struct {
	chunker  *Chunker
	embedder Embedder
	store    vectorstore.Store
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewService creates an ingest service.
func NewService(chunker *Chunker, embedder Embedder, store vectorstore.Store, logger *zap.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logger,
		metrics:  metrics,
	}
}

// Result summarizes one document ingestion.
type Result struct {
	DocumentID   string `json:"document_id"`
	ChunksTotal  int    `json:"chunks_total"`
	ChunksStored int    `json:"chunks_stored"`
}

// IngestDocument splits text into chunks and indexes them under docID.
// Individual chunk failures are logged and skipped; the document is only
// rejected when it produced no chunks at all.
func (s *Service) IngestDocument(ctx context.Context, docID, source, text string) (*Result, error) {
	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil, services.ErrNoExtractableText
	}

	s.logger.Debug("ingesting document",
		zap.String("document_id", docID),
		zap.String("source", source),
		zap.Int("chunks", len(chunks)))

	stored := 0
	for i, chunk := range chunks {
		chunkID := fmt.Sprintf("%s_chunk_%d", docID, i)

		vector, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			s.logger.Warn("failed to embed chunk",
				zap.String("chunk_id", chunkID), zap.Error(err))
			continue
		}

		err = s.store.Upsert(ctx, chunkID, vector, vectorstore.Metadata{
			Type:   vectorstore.TypeDocument,
			Text:   chunk,
			Source: source,
		})
		if err != nil {
			s.logger.Warn("failed to store chunk",
				zap.String("chunk_id", chunkID), zap.Error(err))
			continue
		}

		stored++
	}

	if s.metrics != nil {
		s.metrics.DocumentsIngested.Inc()
		s.metrics.ChunksStored.Add(float64(stored))
	}

	if stored == 0 {
		return nil, services.WrapExternal(fmt.Sprintf("no chunks stored for document %s", docID), nil)
	}

	return &Result{
		DocumentID:   docID,
		ChunksTotal:  len(chunks),
		ChunksStored: stored,
	}, nil
}
