// Package transcript records completed conversational turns for later review.
package transcript

import (
	"context"
	"time"
)

// TurnRecord captures one finished turn: what the user said, what the
// character replied, and how synthesis went.
type TurnRecord struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	UserText     string    `json:"user_text"`
	ReplyText    string    `json:"reply_text"`
	ChunksTotal  int       `json:"chunks_total"`
	ChunksFailed int       `json:"chunks_failed"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists and retrieves turn records.
type Store interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
	Recent(ctx context.Context, limit int) ([]TurnRecord, error)
	Close() error
}
