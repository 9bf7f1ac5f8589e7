package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthscope/symptom-checker/backend/models"
	"github.com/healthscope/symptom-checker/backend/repositories"
)

// Service records query logs asynchronously so audit writes never sit on the
// request path.
type Service struct {
	queryLogs   repositories.QueryLogRepository
	logger      *zap.Logger
	eventChan   chan *models.QueryLog
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	mu          sync.Mutex
}

// Config holds configuration for the audit service
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewService creates a new audit service instance
func NewService(queryLogs repositories.QueryLogRepository, logger *zap.Logger, config Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		queryLogs:   queryLogs,
		logger:      logger,
		eventChan:   make(chan *models.QueryLog, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service, waiting for pending events.
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	// Close the event channel (no more events will be accepted)
	close(s.eventChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record queues a query log entry without blocking. When the buffer is full
// the entry is dropped; losing an audit row must never fail a request.
func (s *Service) Record(log *models.QueryLog) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.mu.Unlock()

	select {
	case s.eventChan <- log:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("endpoint", log.Endpoint),
			zap.String("user_id", log.UserID.String()))
		return fmt.Errorf("audit event buffer full")
	}
}

// worker processes events from the channel
func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for log := range s.eventChan {
		if err := s.processEvent(log); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("endpoint", log.Endpoint))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent persists a single query log entry
func (s *Service) processEvent(log *models.QueryLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.queryLogs.Insert(ctx, log); err != nil {
		return fmt.Errorf("failed to insert query log: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// AnalysisRecord captures everything worth auditing about one analysis call.
type AnalysisRecord struct {
	UserID      uuid.UUID
	RequestID   string
	Endpoint    string
	Severity    models.Severity
	ContextSize int
	Latency     time.Duration
	Status      string
	Error       string
	IPAddress   string
	UserAgent   string
}

// RecordAnalysis queues an audit entry for one analysis request.
func (s *Service) RecordAnalysis(rec AnalysisRecord) error {
	return s.Record(&models.QueryLog{
		ID:           uuid.New(),
		UserID:       rec.UserID,
		RequestID:    rec.RequestID,
		Endpoint:     rec.Endpoint,
		Severity:     rec.Severity,
		ContextSize:  rec.ContextSize,
		LatencyMs:    int(rec.Latency.Milliseconds()),
		Status:       rec.Status,
		ErrorMessage: rec.Error,
		IPAddress:    rec.IPAddress,
		UserAgent:    rec.UserAgent,
		CreatedAt:    time.Now(),
	})
}
