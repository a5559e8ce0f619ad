// Package client drives conversational turns from the playback side: it
// sends the user's text to the server, reads the ordered event stream, and
// feeds audio through the filler-aware playback queue.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/corsairworks/bones/internal/chat"
	"github.com/corsairworks/bones/internal/playback"
	"github.com/corsairworks/bones/internal/protocol"
)

// TurnResult summarizes one completed turn.
type TurnResult struct {
	ReplyText    string
	ChunksPlayed int
	ChunksTotal  int
}

// Runner executes turns against one server with one shared audio sink.
type Runner struct {
	serverURL string
	model     string
	client    *http.Client
	sink      playback.Sink
	filler    *playback.Filler
}

func NewRunner(serverURL, model string, sink playback.Sink, filler *playback.Filler) *Runner {
	return &Runner{
		serverURL: strings.TrimRight(strings.TrimSpace(serverURL), "/"),
		model:     model,
		// Streams stay open for the whole turn; no overall timeout.
		client: &http.Client{Timeout: 0},
		sink:   sink,
		filler: filler,
	}
}

type turnRequest struct {
	Model    string         `json:"model,omitempty"`
	Messages []chat.Message `json:"messages"`
}

// ProcessTurn runs one turn: user text in, spoken reply out. On success the
// history gains the user and assistant messages and is trimmed to its
// window. A failed turn leaves the history untouched.
func (r *Runner) ProcessTurn(ctx context.Context, history *chat.History, userText string) (TurnResult, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return TurnResult{}, fmt.Errorf("empty user text")
	}

	messages := append(history.Messages(), chat.Message{Role: chat.RoleUser, Content: userText})
	payload, err := json.Marshal(turnRequest{Model: r.model, Messages: messages})
	if err != nil {
		return TurnResult{}, fmt.Errorf("marshal turn request: %w", err)
	}

	if r.filler != nil {
		r.filler.Start(ctx)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serverURL+"/api/chat/stream", bytes.NewReader(payload))
	if err != nil {
		return TurnResult{}, fmt.Errorf("create turn request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return TurnResult{}, fmt.Errorf("send turn request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return TurnResult{}, fmt.Errorf("server status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	result, err := r.playStream(ctx, res.Body)
	if err != nil {
		return TurnResult{}, err
	}

	history.Append(chat.RoleUser, userText)
	history.Append(chat.RoleAssistant, result.ReplyText)
	return result, nil
}

func (r *Runner) playStream(ctx context.Context, body io.Reader) (TurnResult, error) {
	queue := playback.NewQueue(ctx, r.sink)
	defer queue.Close()

	var (
		result     TurnResult
		complete   bool
		firstChunk = true
	)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		event, ok, err := protocol.ParseFrame(scanner.Text())
		if err != nil {
			return TurnResult{}, fmt.Errorf("malformed stream frame: %w", err)
		}
		if !ok {
			continue
		}

		switch evt := event.(type) {
		case protocol.Metadata:
			result.ChunksTotal = evt.TotalChunks
		case protocol.AudioChunk:
			if evt.ChunkID > result.ChunksTotal {
				result.ChunksTotal = evt.ChunkID
			}
			clip, err := base64.StdEncoding.DecodeString(evt.AudioBase64)
			if err != nil {
				log.Printf("chunk %d: dropping undecodable audio: %v", evt.ChunkID, err)
				continue
			}
			if firstChunk {
				firstChunk = false
				if r.filler != nil {
					if err := r.filler.AwaitQuiet(ctx); err != nil {
						return TurnResult{}, err
					}
				}
			}
			if err := queue.Enqueue(clip); err != nil {
				return TurnResult{}, err
			}
			result.ChunksPlayed++
		case protocol.ChunkError:
			if evt.ChunkID > result.ChunksTotal {
				result.ChunksTotal = evt.ChunkID
			}
			log.Printf("chunk %d unavailable: %s", evt.ChunkID, evt.Message)
		case protocol.Complete:
			result.ReplyText = evt.Text
			complete = true
		case protocol.Error:
			return TurnResult{}, fmt.Errorf("turn failed: %s", evt.Message)
		}
	}
	if err := scanner.Err(); err != nil {
		return TurnResult{}, fmt.Errorf("read stream: %w", err)
	}
	if !complete {
		return TurnResult{}, fmt.Errorf("stream ended without terminal event")
	}

	// Let the filler finish even when the whole turn produced no audio.
	if firstChunk && r.filler != nil {
		if err := r.filler.AwaitQuiet(ctx); err != nil {
			return TurnResult{}, err
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	if err := queue.WaitIdle(waitCtx); err != nil {
		return TurnResult{}, fmt.Errorf("wait for playback: %w", err)
	}
	return result, nil
}
