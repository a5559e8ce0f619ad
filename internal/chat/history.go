// Package chat models the conversation history exchanged with the language
// backend.
package chat

import "strings"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat-completions conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History is an explicit conversation value owned by the caller of a turn.
// If a system message is present it is always the first entry.
type History struct {
	messages []Message
}

// NewHistory starts a history, seeding the system prompt when non-empty.
func NewHistory(systemPrompt string) *History {
	h := &History{}
	if strings.TrimSpace(systemPrompt) != "" {
		h.messages = append(h.messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	return h
}

// Append adds one message to the end of the history.
func (h *History) Append(role, content string) {
	h.messages = append(h.messages, Message{Role: role, Content: content})
}

// Messages returns a copy of the ordered conversation for a backend request.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len reports the number of messages including any system entry.
func (h *History) Len() int { return len(h.messages) }

// Trim bounds the history to the system entry plus the last maxNonSystem
// messages, keeping backend context and process memory bounded across a long
// conversation.
func (h *History) Trim(maxNonSystem int) {
	if maxNonSystem <= 0 {
		return
	}
	var system []Message
	rest := h.messages
	if len(rest) > 0 && rest[0].Role == RoleSystem {
		system = rest[:1]
		rest = rest[1:]
	}
	if len(rest) > maxNonSystem {
		rest = rest[len(rest)-maxNonSystem:]
		// Never start the window mid-exchange: an odd cut would leave an
		// assistant message with no preceding user message.
		for len(rest) > 0 && rest[0].Role == RoleAssistant {
			rest = rest[1:]
		}
	}
	h.messages = append(append([]Message{}, system...), rest...)
}
