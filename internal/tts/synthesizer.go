// Package tts provides the text-to-speech capability behind the streaming
// pipeline: interchangeable engines plus the per-sentence synthesis worker.
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Synthesizer converts one piece of text into encoded audio bytes. Engines
// are selected once at startup by configuration and injected wherever speech
// is produced.
type Synthesizer interface {
	// Synthesize returns encoded audio for text, or a *SynthesisError.
	Synthesize(ctx context.Context, text string) ([]byte, error)
	// Name identifies the engine in logs and metrics.
	Name() string
}

// SynthesisError is a chunk-scoped failure: it marks one sentence as failed
// without aborting the rest of the turn.
type SynthesisError struct {
	Engine string
	Cause  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("tts %s: %v", e.Engine, e.Cause)
}

func (e *SynthesisError) Unwrap() error { return e.Cause }

// ErrEmptyInput is returned for input with nothing pronounceable in it.
var ErrEmptyInput = errors.New("nothing to synthesize")

func synthErr(engine string, cause error) error {
	return &SynthesisError{Engine: engine, Cause: cause}
}

// Pronounceable reports whether text contains anything a voice can say.
// Whitespace-only and punctuation-only fragments (a degenerate "...!!"
// sentence) are skipped rather than surfaced as chunk errors.
func Pronounceable(text string) bool {
	return strings.ContainsFunc(text, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	})
}
