package tts

import (
	"context"
	"errors"
	"fmt"
)

// Worker is the per-sentence synthesis unit: it normalizes text for the
// character voice, rejects unpronounceable input, and retries once against a
// fallback engine before giving up. Failures are chunk-scoped; one bad
// sentence never affects its neighbours.
type Worker struct {
	primary  Synthesizer
	fallback Synthesizer
}

// NewWorker builds a Worker. fallback may be nil when no fallback engine is
// configured.
func NewWorker(primary, fallback Synthesizer) *Worker {
	return &Worker{primary: primary, fallback: fallback}
}

// Speak synthesizes one sentence. It returns the audio bytes and the
// normalized text that was actually spoken. ErrEmptyInput (wrapped) means
// the sentence had nothing pronounceable and should be skipped silently, not
// reported as a chunk error.
func (w *Worker) Speak(ctx context.Context, text string) (audio []byte, spoken string, err error) {
	spoken = Normalize(text)
	if !Pronounceable(spoken) {
		return nil, spoken, synthErr("worker", ErrEmptyInput)
	}

	audio, primaryErr := w.primary.Synthesize(ctx, spoken)
	if primaryErr == nil {
		return audio, spoken, nil
	}
	if ctx.Err() != nil {
		return nil, spoken, synthErr(w.primary.Name(), ctx.Err())
	}
	if w.fallback == nil {
		return nil, spoken, primaryErr
	}

	audio, fallbackErr := w.fallback.Synthesize(ctx, spoken)
	if fallbackErr != nil {
		return nil, spoken, synthErr(w.fallback.Name(),
			fmt.Errorf("primary failed: %v; fallback failed: %w", primaryErr, fallbackErr))
	}
	return audio, spoken, nil
}

// IsSkip reports whether err marks input that was skipped rather than failed.
func IsSkip(err error) bool {
	return errors.Is(err, ErrEmptyInput)
}
