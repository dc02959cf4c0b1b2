package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the hex encoded sha256 digest of data.
// The full digest is used for comparisons, shortened forms are for display only.
func HashContent(data []byte) string {
	hasher := sha256.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}
