// Package protocol defines the wire events streamed from the server to a
// playback client during one conversational turn.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EventType identifies stream event variants.
type EventType string

const (
	TypeMetadata   EventType = "metadata"
	TypeAudioChunk EventType = "audio_chunk"
	TypeChunkError EventType = "chunk_error"
	TypeComplete   EventType = "complete"
	TypeError      EventType = "error"
)

var ErrUnsupportedType = errors.New("unsupported event type")

// FramePrefix marks event lines on the wire. Frames are newline-delimited:
// "data: <json>\n\n", flushed one event at a time.
const FramePrefix = "data: "

type Envelope struct {
	Type EventType `json:"type"`
}

// Metadata opens a stream. TotalChunks is an exact count in whole-reply mode
// and 0 (unknown) when sentences are discovered incrementally.
type Metadata struct {
	Type        EventType `json:"type"`
	TotalChunks int       `json:"total_chunks"`
	Text        string    `json:"text"`
}

// AudioChunk carries one synthesized sentence. ChunkID values are 1-based,
// strictly increasing and gapless across audio_chunk and chunk_error events;
// their order is the playback order.
type AudioChunk struct {
	Type        EventType `json:"type"`
	ChunkID     int       `json:"chunk_id"`
	TextChunk   string    `json:"text_chunk"`
	AudioBase64 string    `json:"audio_base64"`
}

// ChunkError reports one sentence whose synthesis failed. It occupies that
// sentence's slot in the chunk_id sequence and never terminates the stream.
type ChunkError struct {
	Type      EventType `json:"type"`
	ChunkID   int       `json:"chunk_id"`
	TextChunk string    `json:"text_chunk"`
	Message   string    `json:"message"`
}

// Complete terminates a successful stream, even when every chunk errored.
type Complete struct {
	Type EventType `json:"type"`
	Text string    `json:"text"`
}

// Error terminates a failed stream (backend unreachable, malformed reply).
type Error struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

// EncodeFrame renders one event as a wire frame.
func EncodeFrame(event any) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal stream event: %w", err)
	}
	frame := make([]byte, 0, len(FramePrefix)+len(payload)+2)
	frame = append(frame, FramePrefix...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	return frame, nil
}

// ParseFrame decodes one wire line into its concrete event type. Lines that
// are not data frames (blank keep-alives, comments) return ok=false.
func ParseFrame(line string) (any, bool, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, FramePrefix) {
		return nil, false, nil
	}
	event, err := ParseEvent([]byte(strings.TrimPrefix(line, FramePrefix)))
	if err != nil {
		return nil, false, err
	}
	return event, true, nil
}

// ParseEvent decodes a JSON-encoded stream event.
func ParseEvent(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeMetadata:
		var evt Metadata
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	case TypeAudioChunk:
		var evt AudioChunk
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, err
		}
		if evt.ChunkID <= 0 || evt.AudioBase64 == "" {
			return nil, errors.New("invalid audio_chunk")
		}
		return evt, nil
	case TypeChunkError:
		var evt ChunkError
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, err
		}
		if evt.ChunkID <= 0 {
			return nil, errors.New("invalid chunk_error")
		}
		return evt, nil
	case TypeComplete:
		var evt Complete
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	case TypeError:
		var evt Error
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, err
		}
		return evt, nil
	default:
		return nil, ErrUnsupportedType
	}
}
