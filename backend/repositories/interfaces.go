package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/healthscope/symptom-checker/backend/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user account data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Update updates a user
	Update(ctx context.Context, user *models.User) error

	// Delete deletes a user
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// HistoryRepository handles persisted symptom analyses
type HistoryRepository interface {
	// Create persists a new history entry
	Create(ctx context.Context, entry *models.SymptomHistory) error

	// GetByID retrieves a history entry by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.SymptomHistory, error)

	// GetByUserID retrieves a user's history, newest first, with pagination
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.SymptomHistory, error)

	// CountByUserID returns how many history entries a user has
	CountByUserID(ctx context.Context, userID uuid.UUID) (int, error)

	// Delete deletes a history entry
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) HistoryRepository
}

// QueryLogRepository handles audit records of analysis requests
type QueryLogRepository interface {
	// Insert inserts a new query log entry
	Insert(ctx context.Context, log *models.QueryLog) error

	// GetByUserID retrieves query logs for a user with pagination
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.QueryLog, error)

	// GetByRequestID retrieves query logs by request ID
	GetByRequestID(ctx context.Context, requestID string) ([]*models.QueryLog, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) QueryLogRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users     UserRepository
	History   HistoryRepository
	QueryLogs QueryLogRepository
}
