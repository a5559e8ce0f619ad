// Package brain talks to the chat-completions backend that writes the
// character's replies.
package brain

import (
	"context"
	"errors"
	"fmt"

	"github.com/corsairworks/bones/internal/chat"
)

// Request is one conversation turn sent to the backend.
type Request struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
}

// DeltaHandler receives streaming text fragments as they arrive.
type DeltaHandler func(delta string) error

// Generator produces reply text for a conversation. Both modes abort the
// whole turn on failure; recovery below the turn level is the synthesis
// pipeline's job, not the backend client's.
type Generator interface {
	// Reply blocks until the backend returns the complete reply text.
	Reply(ctx context.Context, req Request) (string, error)
	// StreamReply delivers the reply incrementally through onDelta and
	// returns the accumulated full text.
	StreamReply(ctx context.Context, req Request, onDelta DeltaHandler) (string, error)
}

// ErrUnavailable marks transport-level failures: connection refused, timeout,
// DNS. Not retryable within the turn.
var ErrUnavailable = errors.New("backend unavailable")

// ProtocolError marks a reachable backend that answered with something the
// client cannot use: non-2xx status, malformed JSON, missing fields.
type ProtocolError struct {
	Status int
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend protocol error (status %d): %s", e.Status, e.Detail)
	}
	return "backend protocol error: " + e.Detail
}
