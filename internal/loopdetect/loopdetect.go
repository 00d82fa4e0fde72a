// Package loopdetect flags when an agent is repeating semantically
// identical, non-progressing actions on a milestone.
package loopdetect

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"marathon/internal/models"
)

const (
	// DefaultMaxIdentical is the repeat count that counts as a loop.
	DefaultMaxIdentical = 3

	// DefaultWindow is the sliding window size in entries.
	DefaultWindow = 10

	// prefixLen bounds how much normalized text feeds the hash.
	prefixLen = 500
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	digitsRe     = regexp.MustCompile(`\d+`)
)

// Result holds the outcome of one detection step.
type Result struct {
	IsLoop     bool
	Count      int
	NewHistory []models.ActionHistoryEntry
}

// Detect hashes the response, appends it to the history, trims the
// window, and counts identical hashes within it.
//
// The window is shared across milestones: entries from other milestones
// dilute the window but an intervening dissimilar action does not reset
// the count. Only window eviction removes identical entries.
func Detect(history []models.ActionHistoryEntry, milestoneID, response string, maxIdentical, window int) Result {
	if maxIdentical <= 0 {
		maxIdentical = DefaultMaxIdentical
	}
	if window <= 0 {
		window = DefaultWindow
	}

	hash := hashAction(milestoneID, response)

	next := make([]models.ActionHistoryEntry, len(history), len(history)+1)
	copy(next, history)
	next = append(next, models.ActionHistoryEntry{
		MilestoneID: milestoneID,
		ContentHash: hash,
		Timestamp:   time.Now().UTC(),
	})
	if len(next) > window {
		next = next[len(next)-window:]
	}

	count := 0
	for _, e := range next {
		if e.ContentHash == hash {
			count++
		}
	}

	return Result{
		IsLoop:     count >= maxIdentical,
		Count:      count,
		NewHistory: next,
	}
}

// hashAction normalizes the response and hashes it together with the
// milestone id to a fixed-width digest.
func hashAction(milestoneID, response string) string {
	normalized := normalize(response)
	if len(normalized) > prefixLen {
		normalized = normalized[:prefixLen]
	}
	sum := sha256.Sum256([]byte(milestoneID + ":" + normalized))
	return hex.EncodeToString(sum[:])
}

// normalize lower-cases, collapses whitespace, and replaces digit runs
// with a placeholder so "line 42" and "line 99" hash identically.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = digitsRe.ReplaceAllString(s, "#")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
