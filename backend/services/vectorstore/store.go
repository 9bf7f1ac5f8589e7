package vectorstore

import "context"

// Snippet types stored alongside vectors.
const (
	TypeSymptom  = "symptom"
	TypeDocument = "document"
)

// metadata text is capped so retrieved context stays prompt-sized
const maxMetadataText = 500

// Metadata is the payload stored with each vector.
type Metadata struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Snippet is one retrieval result, ordered by descending similarity score.
type Snippet struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Type   string  `json:"type"`
	Score  float32 `json:"score"`
}

// Store indexes vectors with metadata and answers similarity queries.
// Query returns an empty slice, never an error, when the backend is
// unavailable; retrieval failures degrade analyses instead of failing them.
type Store interface {
	Upsert(ctx context.Context, id string, vector []float32, meta Metadata) error
	Query(ctx context.Context, vector []float32, topK int, typeFilter string) ([]Snippet, error)
	IsAvailable(ctx context.Context) bool
}

// truncateText enforces the metadata text cap.
func truncateText(text string) string {
	if len(text) > maxMetadataText {
		return text[:maxMetadataText]
	}
	return text
}
