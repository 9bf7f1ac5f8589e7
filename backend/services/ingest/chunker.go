package ingest

import (
	"fmt"
	"strings"
)

const (
	// DefaultChunkSize is the window size in bytes for document chunking.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is how many bytes consecutive chunks share.
	DefaultChunkOverlap = 200
)

// Chunker splits document text into overlapping chunks sized for embedding.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. The overlap must be strictly smaller than the
// chunk size or the window could never advance.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", overlap, size)
	}

	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into trimmed chunks of at most the configured size.
// Within each window the split prefers the last sentence or line boundary,
// but only when that boundary lies past the window's midpoint; otherwise the
// window is cut at full size. Consecutive chunks overlap by the configured
// amount so sentences spanning a cut stay retrievable.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	if len(text) <= c.size {
		return []string{strings.TrimSpace(text)}
	}

	chunks := []string{}
	start := 0

	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			if chunk := strings.TrimSpace(text[start:]); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		window := text[start:end]
		breakPoint := strings.LastIndexByte(window, '.')
		if nl := strings.LastIndexByte(window, '\n'); nl > breakPoint {
			breakPoint = nl
		}

		// only honor a boundary past the midpoint; earlier ones would
		// produce runt chunks
		if float64(breakPoint) > float64(c.size)*0.5 {
			end = start + breakPoint + 1
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured chunk overlap.
func (c *Chunker) Overlap() int { return c.overlap }
