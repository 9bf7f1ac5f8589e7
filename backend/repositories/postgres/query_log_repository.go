package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/healthscope/symptom-checker/backend/models"
	"github.com/healthscope/symptom-checker/backend/repositories"
)

// QueryLogRepository implements the repositories.QueryLogRepository interface
type QueryLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewQueryLogRepository creates a new query log repository
func NewQueryLogRepository(db *DB, logger *zap.Logger) repositories.QueryLogRepository {
	return &QueryLogRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new query log entry
func (r *QueryLogRepository) Insert(ctx context.Context, log *models.QueryLog) error {
	query := `
		INSERT INTO query_logs (id, user_id, request_id, endpoint, severity, context_size, latency_ms, status, error_message, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.UserID,
		log.RequestID,
		log.Endpoint,
		log.Severity,
		log.ContextSize,
		log.LatencyMs,
		log.Status,
		nullString(log.ErrorMessage),
		nullString(log.IPAddress),
		nullString(log.UserAgent),
		log.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert query log: %w", err)
	}

	return nil
}

// GetByUserID retrieves query logs for a user with pagination
func (r *QueryLogRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.QueryLog, error) {
	query := `
		SELECT id, user_id, request_id, endpoint, severity, context_size, latency_ms, status, error_message, ip_address, user_agent, created_at
		FROM query_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	return collectQueryLogs(rows)
}

// GetByRequestID retrieves query logs by request ID
func (r *QueryLogRepository) GetByRequestID(ctx context.Context, requestID string) ([]*models.QueryLog, error) {
	query := `
		SELECT id, user_id, request_id, endpoint, severity, context_size, latency_ms, status, error_message, ip_address, user_agent, created_at
		FROM query_logs
		WHERE request_id = $1
		ORDER BY created_at DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	return collectQueryLogs(rows)
}

// WithTx returns a new repository instance bound to the transaction
func (r *QueryLogRepository) WithTx(tx repositories.Transaction) repositories.QueryLogRepository {
	return &QueryLogRepository{
		db:     r.db,
		logger: r.logger,
	}
}

func collectQueryLogs(rows *sql.Rows) ([]*models.QueryLog, error) {
	var logs []*models.QueryLog
	for rows.Next() {
		log := &models.QueryLog{}
		var requestID, severity, errorMessage, ipAddress, userAgent sql.NullString

		err := rows.Scan(
			&log.ID,
			&log.UserID,
			&requestID,
			&log.Endpoint,
			&severity,
			&log.ContextSize,
			&log.LatencyMs,
			&log.Status,
			&errorMessage,
			&ipAddress,
			&userAgent,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query log: %w", err)
		}

		log.RequestID = requestID.String
		log.Severity = models.Severity(severity.String)
		log.ErrorMessage = errorMessage.String
		log.IPAddress = ipAddress.String
		log.UserAgent = userAgent.String
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query log rows: %w", err)
	}

	return logs, nil
}
