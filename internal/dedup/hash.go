// Package dedup detects duplicate document content within a session.
//
// Identity is the SHA-256 of the normalized extracted text, so the same
// content served from different URLs or re-uploaded under a new filename
// hashes identically.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Normalize lowercases the text and collapses all whitespace runs to a
// single space so formatting differences do not defeat dedup.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inSpace := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// Hash returns the hex SHA-256 of the normalized text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}
