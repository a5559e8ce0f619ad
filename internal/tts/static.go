package tts

import (
	"context"
	"fmt"
	"os"
)

// StaticEngine always returns one pre-recorded clip, regardless of input.
// It backs the last-resort fallback: when real synthesis fails, the character
// still says its recorded apology line instead of going silent.
type StaticEngine struct {
	clip []byte
}

func NewStaticEngine(clipPath string) (*StaticEngine, error) {
	clip, err := os.ReadFile(clipPath)
	if err != nil {
		return nil, fmt.Errorf("read fallback clip: %w", err)
	}
	if len(clip) == 0 {
		return nil, fmt.Errorf("fallback clip %s is empty", clipPath)
	}
	return &StaticEngine{clip: clip}, nil
}

// NewStaticEngineFromClip wraps an in-memory clip, for callers that generate
// their fallback audio instead of recording it.
func NewStaticEngineFromClip(clip []byte) *StaticEngine {
	return &StaticEngine{clip: clip}
}

func (e *StaticEngine) Name() string { return "static" }

func (e *StaticEngine) Synthesize(_ context.Context, _ string) ([]byte, error) {
	out := make([]byte, len(e.clip))
	copy(out, e.clip)
	return out, nil
}
