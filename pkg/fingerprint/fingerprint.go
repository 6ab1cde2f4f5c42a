// Package fingerprint computes the content fingerprints used to decide
// whether a cached embedding is still valid for a document.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length of a fingerprint in hex characters.
const Size = sha256.Size * 2

// Of returns the lowercase hex SHA-256 digest of text.
func Of(text string) string {
	return OfBytes([]byte(text))
}

// OfBytes returns the lowercase hex SHA-256 digest of b.
func OfBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Valid reports whether s has the shape of a fingerprint.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
