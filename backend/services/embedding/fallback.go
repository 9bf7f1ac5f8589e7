package embedding

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashVector derives a deterministic pseudo-embedding from text. Each byte of
// the SHA-256 digest is scaled by 255 into [0, 1]; the result is zero-padded
// or truncated to dims. The same text always yields the same vector, which
// keeps retrieval consistent even though the values carry no semantics.
func HashVector(text string, dims int) []float32 {
	digest := sha256.Sum256([]byte(text))

	vec := make([]float32, dims)
	for i := 0; i < dims && i < len(digest); i++ {
		vec[i] = float32(digest[i]) / 255.0
	}
	return vec
}

// ContentKey builds a cache key from the text content and model name so that
// a model change never serves stale vectors.
func ContentKey(text, model string) string {
	digest := sha256.Sum256([]byte(model + "\x00" + text))
	return "emb:" + hex.EncodeToString(digest[:])
}
