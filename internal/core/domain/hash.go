package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText returns the hex-encoded SHA-256 digest of text.
// All content addressing (queries, contexts, chunks, file fingerprints)
// uses this single function so keys are comparable across stores.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
