package brain

import (
	"context"
	"strings"
)

// MockGenerator returns a scripted reply, optionally delivered as word-sized
// deltas. Used by tests and by the server's mock backend mode.
type MockGenerator struct {
	// ReplyText is returned verbatim; when empty a canned line is used.
	ReplyText string
	// Err, when set, is returned by both modes.
	Err error
}

func NewMockGenerator(reply string) *MockGenerator {
	return &MockGenerator{ReplyText: reply}
}

func (g *MockGenerator) reply() string {
	if strings.TrimSpace(g.ReplyText) != "" {
		return g.ReplyText
	}
	return "Arr, ask me anything, matey!"
}

func (g *MockGenerator) Reply(_ context.Context, _ Request) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	return g.reply(), nil
}

func (g *MockGenerator) StreamReply(ctx context.Context, _ Request, onDelta DeltaHandler) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	text := g.reply()
	if onDelta != nil {
		// Word-at-a-time deltas approximate real token streaming closely
		// enough to exercise incremental segmentation.
		words := strings.SplitAfter(text, " ")
		for _, w := range words {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
			}
			if w == "" {
				continue
			}
			if err := onDelta(w); err != nil {
				return "", err
			}
		}
	}
	return text, nil
}
