package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/healthscope/symptom-checker/backend/models"
	"github.com/healthscope/symptom-checker/backend/repositories"
)

// HistoryRepository implements the repositories.HistoryRepository interface
type HistoryRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB, logger *zap.Logger) repositories.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new history entry
func (r *HistoryRepository) Create(ctx context.Context, entry *models.SymptomHistory) error {
	query := `
		INSERT INTO symptom_history (id, user_id, symptoms, conditions, recommendations, severity, image_filename, document_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Symptoms,
		pq.Array(entry.Conditions),
		pq.Array(entry.Recommendations),
		entry.Severity,
		nullString(entry.ImageFilename),
		nullString(entry.DocumentName),
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create history entry: %w", err)
	}

	r.logger.Debug("history entry created",
		zap.String("id", entry.ID.String()),
		zap.String("user_id", entry.UserID.String()))
	return nil
}

// GetByID retrieves a history entry by ID
func (r *HistoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SymptomHistory, error) {
	query := `
		SELECT id, user_id, symptoms, conditions, recommendations, severity, image_filename, document_name, created_at
		FROM symptom_history
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	entry, err := scanHistoryRow(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("history entry not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}

	return entry, nil
}

// GetByUserID retrieves a user's history, newest first, with pagination
func (r *HistoryRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.SymptomHistory, error) {
	query := `
		SELECT id, user_id, symptoms, conditions, recommendations, severity, image_filename, document_name, created_at
		FROM symptom_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*models.SymptomHistory
	for rows.Next() {
		entry, err := scanHistoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return entries, nil
}

// CountByUserID returns how many history entries a user has
func (r *HistoryRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM symptom_history WHERE user_id = $1`

	executor := GetExecutor(ctx, r.db)
	var count int
	if err := executor.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count history entries: %w", err)
	}

	return count, nil
}

// Delete deletes a history entry
func (r *HistoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM symptom_history WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("history entry not found: %s", id)
	}

	r.logger.Debug("history entry deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *HistoryRepository) WithTx(tx repositories.Transaction) repositories.HistoryRepository {
	return &HistoryRepository{
		db:     r.db,
		logger: r.logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHistoryRow(row rowScanner) (*models.SymptomHistory, error) {
	entry := &models.SymptomHistory{}
	var imageFilename, documentName sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Symptoms,
		pq.Array(&entry.Conditions),
		pq.Array(&entry.Recommendations),
		&entry.Severity,
		&imageFilename,
		&documentName,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.ImageFilename = imageFilename.String
	entry.DocumentName = documentName.String
	return entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
