package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthscope/symptom-checker/backend/middleware"
	"github.com/healthscope/symptom-checker/backend/services"
	"github.com/healthscope/symptom-checker/backend/services/ingest"
	"github.com/healthscope/symptom-checker/backend/utils"
)

// DocumentHandler handles medical reference document uploads
type DocumentHandler struct {
	ingestor DocumentIngestor
	logger   *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(ingestor DocumentIngestor, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		ingestor: ingestor,
		logger:   logger,
	}
}

// HandleUpload handles POST /api/v1/documents. The PDF is chunked, embedded
// and indexed so later analyses can retrieve it as context.
func (h *DocumentHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid multipart form", nil)
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Missing document file", nil)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		HandleServiceError(w, services.ErrNotPDF, h.logger)
		return
	}

	text, err := ingest.ExtractPDFText(file, header.Size)
	if err != nil {
		h.logger.Warn("document extraction failed",
			zap.String("request_id", requestID),
			zap.String("filename", header.Filename),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	docID := "doc_" + uuid.NewString()
	result, err := h.ingestor.IngestDocument(ctx, docID, header.Filename, text)
	if err != nil {
		h.logger.Warn("document ingestion failed",
			zap.String("request_id", requestID),
			zap.String("doc_id", docID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("document ingested",
		zap.String("request_id", requestID),
		zap.String("doc_id", docID),
		zap.String("filename", header.Filename),
		zap.Int("chunks_total", result.ChunksTotal),
		zap.Int("chunks_stored", result.ChunksStored))

	if err := utils.WriteCreated(w, DocumentUploadResponse{
		DocumentID:   result.DocumentID,
		Filename:     header.Filename,
		ChunksTotal:  result.ChunksTotal,
		ChunksStored: result.ChunksStored,
	}); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// DocumentUploadResponse represents a successful document ingestion
type DocumentUploadResponse struct {
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	ChunksTotal  int    `json:"chunks_total"`
	ChunksStored int    `json:"chunks_stored"`
}
