package models

import (
	"time"

	"github.com/google/uuid"
)

// SymptomHistory is a persisted record of one analysis performed for a user.
type SymptomHistory struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	Symptoms        string    `json:"symptoms" db:"symptoms"`
	Conditions      []string  `json:"conditions" db:"conditions"`
	Recommendations []string  `json:"recommendations" db:"recommendations"`
	Severity        Severity  `json:"severity" db:"severity"`
	ImageFilename   string    `json:"image_filename,omitempty" db:"image_filename"`
	DocumentName    string    `json:"document_name,omitempty" db:"document_name"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the SymptomHistory model
func (SymptomHistory) TableName() string {
	return "symptom_history"
}

// NewSymptomHistory creates a history record from an analysis result.
func NewSymptomHistory(userID uuid.UUID, symptoms string, analysis SymptomAnalysis) *SymptomHistory {
	return &SymptomHistory{
		ID:              uuid.New(),
		UserID:          userID,
		Symptoms:        symptoms,
		Conditions:      analysis.Conditions,
		Recommendations: analysis.Recommendations,
		Severity:        analysis.Severity,
		CreatedAt:       time.Now(),
	}
}
