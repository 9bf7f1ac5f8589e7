package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

type memoryEntry struct {
	vector []float32
	meta   Metadata
}

// MemoryStore is a brute-force in-memory vector index. It backs local
// development and tests, and serves as the fallback when no Weaviate host is
// configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
	}
}

// Upsert stores or replaces the vector under id.
func (s *MemoryStore) Upsert(ctx context.Context, id string, vector []float32, meta Metadata) error {
	meta.Text = truncateText(meta.Text)

	vec := make([]float32, len(vector))
	copy(vec, vector)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{vector: vec, meta: meta}
	return nil
}

// Query returns the topK most similar entries by cosine similarity,
// optionally restricted to one snippet type.
func (s *MemoryStore) Query(ctx context.Context, vector []float32, topK int, typeFilter string) ([]Snippet, error) {
	if topK <= 0 {
		return []Snippet{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Snippet, 0, len(s.entries))
	for id, entry := range s.entries {
		if typeFilter != "" && entry.meta.Type != typeFilter {
			continue
		}
		results = append(results, Snippet{
			ID:     id,
			Text:   entry.meta.Text,
			Source: entry.meta.Source,
			Type:   entry.meta.Type,
			Score:  cosineSimilarity(vector, entry.vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// IsAvailable always reports true; memory never goes away.
func (s *MemoryStore) IsAvailable(ctx context.Context) bool {
	return true
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is zero or the lengths differ.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
