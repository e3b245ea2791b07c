package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash computes a deterministic digest over the analyzable text of a
// content item: the transcript followed by every OCR line. Reruns that
// produce the same hash analyzed identical content even if scores drift.
func ContentHash(transcript string, ocrText []string) string {
	hasher := sha256.New()
	hasher.Write([]byte(strings.TrimSpace(transcript)))
	for _, line := range ocrText {
		hasher.Write([]byte{0})
		hasher.Write([]byte(strings.TrimSpace(line)))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
