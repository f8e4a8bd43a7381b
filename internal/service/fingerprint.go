package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeQuestion lowercases and collapses whitespace so trivially
// reformatted questions share one fingerprint.
func NormalizeQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

// Fingerprint is the deterministic cache key of a question.
func Fingerprint(question string) string {
	hash := sha256.Sum256([]byte(NormalizeQuestion(question)))
	return hex.EncodeToString(hash[:])
}
