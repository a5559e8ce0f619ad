// Package segment cuts accumulated reply text into sentence-sized pieces for
// incremental synthesis.
package segment

import (
	"regexp"
	"strings"
)

// A sentence ends at a run of terminal punctuation followed by whitespace.
// The whitespace stays attached to the sentence so that joining all pieces
// reproduces the input byte for byte.
var boundary = regexp.MustCompile(`[.!?]+[ \t\r\n]+`)

// Split returns the complete sentences in buffer plus the trailing incomplete
// remainder. The remainder must be carried into the next call; at end of
// stream the caller flushes it via Flush. Split is pure: identical input
// yields identical output, and feeding text incrementally (remainder + next
// piece) commits the same sentences as one whole-buffer call.
func Split(buffer string) (sentences []string, remainder string) {
	locs := boundary.FindAllStringIndex(buffer, -1)
	start := 0
	for _, loc := range locs {
		sentences = append(sentences, buffer[start:loc[1]])
		start = loc[1]
	}
	return sentences, buffer[start:]
}

// Flush converts a final remainder into its last sentence, if any. Trailing
// text without terminal punctuation still becomes a sentence; dropping it
// would silently swallow the end of the reply.
func Flush(remainder string) (string, bool) {
	if strings.TrimSpace(remainder) == "" {
		return "", false
	}
	return remainder, true
}
