package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

const fingerprintTagLimit = 5

// Fingerprint derives the cache key for a turn. Two learners at the same
// level with the same recent error profile asking the same thing hit the
// same entry, so the key is the normalized message plus the slice of
// profile state that shapes the response.
func Fingerprint(message, proficiency string, recentTags []string) string {
	tags := recentTags
	if len(tags) > fingerprintTagLimit {
		tags = tags[:fingerprintTagLimit]
	}

	h := sha256.New()
	h.Write([]byte(normalizeMessage(message)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToUpper(strings.TrimSpace(proficiency))))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(tags, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// ClusterKey names the concept cluster a response belongs to, for the
// last-good fallback store. Order of the concept ids must not matter.
func ClusterKey(conceptIDs []string) string {
	if len(conceptIDs) == 0 {
		return "general"
	}
	sorted := append([]string(nil), conceptIDs...)
	sort.Strings(sorted)

	h := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(h[:8])
}

// normalizeMessage lowercases, collapses runs of whitespace, and strips
// trailing sentence punctuation so trivial retypes share a fingerprint.
func normalizeMessage(message string) string {
	fields := strings.Fields(strings.ToLower(message))
	joined := strings.Join(fields, " ")
	return strings.TrimRight(joined, ".!?, ")
}
