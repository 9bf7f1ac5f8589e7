package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthscope/symptom-checker/backend/middleware"
	"github.com/healthscope/symptom-checker/backend/models"
	"github.com/healthscope/symptom-checker/backend/repositories"
	"github.com/healthscope/symptom-checker/backend/services"
	"github.com/healthscope/symptom-checker/backend/services/analysis"
	"github.com/healthscope/symptom-checker/backend/services/audit"
	"github.com/healthscope/symptom-checker/backend/services/ingest"
	"github.com/healthscope/symptom-checker/backend/services/media"
	"github.com/healthscope/symptom-checker/backend/services/privacy"
	"github.com/healthscope/symptom-checker/backend/utils"
)

// Disclaimer is attached to every analysis response.
const Disclaimer = "This analysis is for informational purposes only and is not a substitute for professional medical advice. Consult a qualified healthcare provider for diagnosis and treatment."

const (
	maxMultipartMemory = 32 << 20
	defaultHistoryPage = 20
	maxHistoryPage     = 100
)

// Analyzer runs the symptom analysis pipeline
type Analyzer interface {
	Analyze(ctx context.Context, input analysis.Input) *analysis.Outcome
}

// DocumentIngestor indexes document text for retrieval
type DocumentIngestor interface {
	IngestDocument(ctx context.Context, docID, source, text string) (*ingest.Result, error)
}

// AuditRecorder queues audit entries for analysis requests
type AuditRecorder interface {
	RecordAnalysis(rec audit.AnalysisRecord) error
}

// SymptomHandler handles symptom analysis and history HTTP requests
type SymptomHandler struct {
	analyzer Analyzer
	ingestor DocumentIngestor
	history  repositories.HistoryRepository
	auditor  AuditRecorder
	logger   *zap.Logger
}

// NewSymptomHandler creates a new SymptomHandler
func NewSymptomHandler(analyzer Analyzer, ingestor DocumentIngestor, history repositories.HistoryRepository, auditor AuditRecorder, logger *zap.Logger) *SymptomHandler {
	return &SymptomHandler{
		analyzer: analyzer,
		ingestor: ingestor,
		history:  history,
		auditor:  auditor,
		logger:   logger,
	}
}

// HandleAnalyze handles POST /api/v1/symptoms/analyze
func (h *SymptomHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse analyze request",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	symptoms := strings.TrimSpace(req.Symptoms)
	if symptoms == "" {
		HandleServiceError(w, services.ErrEmptySymptoms, h.logger)
		return
	}

	h.analyzeAndRespond(w, r, symptoms, nil, false, func(entry *models.SymptomHistory) {})
}

// HandleAnalyzeWithDocument handles POST /api/v1/symptoms/analyze-with-documents.
// The uploaded PDF is indexed first so its chunks are retrievable for this and
// all later analyses.
func (h *SymptomHandler) HandleAnalyzeWithDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid multipart form", nil)
		return
	}

	symptoms := strings.TrimSpace(r.FormValue("symptoms"))
	if symptoms == "" {
		HandleServiceError(w, services.ErrEmptySymptoms, h.logger)
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

	h.logger.Info("document indexed for analysis",
		zap.String("request_id", requestID),
		zap.String("doc_id", docID),
		zap.Int("chunks_stored", result.ChunksStored))

	notes := []string{"The patient attached a medical document: " + header.Filename}
	h.analyzeAndRespond(w, r, symptoms, notes, true, func(entry *models.SymptomHistory) {
		entry.DocumentName = header.Filename
	})
}

// HandleAnalyzeImage handles POST /api/v1/symptoms/analyze-image. The image is
// validated and summarized into a prompt note; its pixels are not interpreted.
func (h *SymptomHandler) HandleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid multipart form", nil)
		return
	}

	symptoms := strings.TrimSpace(r.FormValue("symptoms"))
	if symptoms == "" {
		HandleServiceError(w, services.ErrEmptySymptoms, h.logger)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Missing image file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, media.MaxImageBytes+1))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Failed to read image", nil)
		return
	}

	info, err := media.ValidateImage(data)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	notes := []string{media.Describe(header.Filename, info)}
	h.analyzeAndRespond(w, r, symptoms, notes, false, func(entry *models.SymptomHistory) {
		entry.ImageFilename = header.Filename
	})
}

// analyzeAndRespond runs the pipeline, persists the history entry, queues the
// audit record and writes the response. includeDocuments turns on document
// chunk retrieval; decorate mutates the history entry before it is saved.
func (h *SymptomHandler) analyzeAndRespond(w http.ResponseWriter, r *http.Request, symptoms string, notes []string, includeDocuments bool, decorate func(*models.SymptomHistory)) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)
	userID := middleware.GetUserIDFromContext(ctx)
	start := time.Now()

	// Strip personal identifiers before the text reaches the model, the
	// vector store or the history table
	symptoms, scrubbed := privacy.Scrub(symptoms)
	if len(scrubbed) > 0 {
		h.logger.Info("personal identifiers removed from symptom text",
			zap.String("request_id", requestID),
			zap.Int("categories", len(scrubbed)))
	}

	outcome := h.analyzer.Analyze(ctx, analysis.Input{
		Symptoms:         symptoms,
		Notes:            notes,
		IncludeDocuments: includeDocuments,
	})

	entry := models.NewSymptomHistory(userID, symptoms, outcome.Analysis)
	decorate(entry)
	if err := h.history.Create(ctx, entry); err != nil {
		// the analysis already succeeded; losing the history row is not fatal
		h.logger.Error("failed to save history entry",
			zap.String("request_id", requestID),
			zap.Error(err))
	}

	status := models.QueryStatusCompleted
	if outcome.Degraded {
		status = models.QueryStatusDegraded
	}

	if err := h.auditor.RecordAnalysis(audit.AnalysisRecord{
		UserID:      userID,
		RequestID:   requestID,
		Endpoint:    r.URL.Path,
		Severity:    outcome.Analysis.Severity,
		ContextSize: outcome.ContextSnippets,
		Latency:     time.Since(start),
		Status:      status,
		IPAddress:   getClientIP(r),
		UserAgent:   r.UserAgent(),
	}); err != nil {
		h.logger.Warn("failed to queue audit record",
			zap.String("request_id", requestID),
			zap.Error(err))
	}

	h.logger.Info("symptom analysis completed",
		zap.String("request_id", requestID),
		zap.String("user_id", userID.String()),
		zap.String("severity", string(outcome.Analysis.Severity)),
		zap.String("parser_stage", outcome.Stage),
		zap.Bool("degraded", outcome.Degraded),
		zap.Int("context_snippets", outcome.ContextSnippets),
		zap.Int64("latency_ms", time.Since(start).Milliseconds()))

	response := AnalyzeResponse{
		ID:              entry.ID.String(),
		Conditions:      outcome.Analysis.Conditions,
		Recommendations: outcome.Analysis.Recommendations,
		Severity:        string(outcome.Analysis.Severity),
		ContextUsed:     outcome.ContextSnippets,
		Degraded:        outcome.Degraded,
		Disclaimer:      Disclaimer,
	}
	if err := utils.WriteOK(w, response); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// HandleListHistory handles GET /api/v1/symptoms/history
func (h *SymptomHandler) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserIDFromContext(ctx)

	limit := queryInt(r, "limit", defaultHistoryPage)
	if limit <= 0 || limit > maxHistoryPage {
		limit = defaultHistoryPage
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := h.history.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		HandleServiceError(w, services.WrapInternal("failed to load history", err), h.logger)
		return
	}

	total, err := h.history.CountByUserID(ctx, userID)
	if err != nil {
		HandleServiceError(w, services.WrapInternal("failed to count history", err), h.logger)
		return
	}

	if err := utils.WriteOK(w, HistoryListResponse{
		Entries: entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleGetHistory handles GET /api/v1/symptoms/history/{id}
func (h *SymptomHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserIDFromContext(ctx)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid history ID", nil)
		return
	}

	entry, err := h.history.GetByID(ctx, id)
	if err != nil || entry.UserID != userID {
		// hide other users' entries behind the same 404
		_ = utils.WriteNotFound(w, "history entry not found")
		return
	}

	if err := utils.WriteOK(w, entry); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// queryInt reads an integer query parameter, falling back on parse failure
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Try X-Forwarded-For first (for proxied requests)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}

	// Try X-Real-IP
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	return r.RemoteAddr
}

// AnalyzeRequest represents a symptom analysis request body
type AnalyzeRequest struct {
	Symptoms string `json:"symptoms" validate:"required,min=3,max=5000"`
}

// AnalyzeResponse represents a symptom analysis response
type AnalyzeResponse struct {
	ID              string   `json:"id"`
	Conditions      []string `json:"conditions"`
	Recommendations []string `json:"recommendations"`
	Severity        string   `json:"severity"`
	ContextUsed     int      `json:"context_used"`
	Degraded        bool     `json:"degraded,omitempty"`
	Disclaimer      string   `json:"disclaimer"`
}

// HistoryListResponse represents a page of history entries
type HistoryListResponse struct {
	Entries []*models.SymptomHistory `json:"entries"`
	Total   int                      `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
}
