package models

import (
	"time"

	"github.com/google/uuid"
)

// QueryLog is an audit record of one analysis request, kept separately from
// the user-facing history so failed requests are captured too.
type QueryLog struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	RequestID    string    `json:"request_id" db:"request_id"`
	Endpoint     string    `json:"endpoint" db:"endpoint"`
	Severity     Severity  `json:"severity" db:"severity"`
	ContextSize  int       `json:"context_size" db:"context_size"`
	LatencyMs    int       `json:"latency_ms" db:"latency_ms"`
	Status       string    `json:"status" db:"status"`
	ErrorMessage string    `json:"error_message,omitempty" db:"error_message"`
	IPAddress    string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent    string    `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the QueryLog model
func (QueryLog) TableName() string {
	return "query_logs"
}

// Query log statuses.
const (
	QueryStatusCompleted = "completed"
	QueryStatusDegraded  = "degraded"
	QueryStatusFailed    = "failed"
)
