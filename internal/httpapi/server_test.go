package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/corsairworks/bones/internal/brain"
	"github.com/corsairworks/bones/internal/config"
	"github.com/corsairworks/bones/internal/observability"
	"github.com/corsairworks/bones/internal/protocol"
	"github.com/corsairworks/bones/internal/stream"
	"github.com/corsairworks/bones/internal/transcript"
	"github.com/corsairworks/bones/internal/tts"
)

func testServer(t *testing.T, gen brain.Generator) (*httptest.Server, *transcript.InMemoryStore) {
	t.Helper()
	cfg := config.Config{LLMModel: "test-model", TTSWorkers: 2}
	metrics := observability.NewMetrics(fmt.Sprintf("bones_test_httpapi_%d", time.Now().UnixNano()))
	seq := stream.NewSequencer(gen, tts.NewWorker(tts.NewMockEngine(), nil), metrics, false, cfg.TTSWorkers)
	store := transcript.NewInMemoryStore(0)
	srv := New(cfg, seq, gen, store, metrics)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, store
}

func turnBody(t *testing.T, text string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"messages": []map[string]string{
			{"role": "system", "content": "ye be a pirate"},
			{"role": "user", "content": text},
		},
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(body)
}

func TestChatReturnsReplyJSON(t *testing.T) {
	ts, store := testServer(t, brain.NewMockGenerator("Ahoy, matey!"))

	res, err := http.Post(ts.URL+"/api/chat", "application/json", turnBody(t, "hello"))
	if err != nil {
		t.Fatalf("POST /api/chat error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if res.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}

	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["response"] != "Ahoy, matey!" {
		t.Fatalf("response = %q", payload["response"])
	}

	recent, err := store.Recent(context.Background(), 1)
	if err != nil || len(recent) != 1 {
		t.Fatalf("transcript = %v, %v", recent, err)
	}
	if recent[0].UserText != "hello" || recent[0].ReplyText != "Ahoy, matey!" {
		t.Fatalf("transcript record = %+v", recent[0])
	}
}

func TestChatRejectsEmptyMessages(t *testing.T) {
	ts, _ := testServer(t, brain.NewMockGenerator(""))

	res, err := http.Post(ts.URL+"/api/chat", "application/json", bytes.NewReader([]byte(`{"messages":[]}`)))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestChatBackendFailureIsBadGateway(t *testing.T) {
	gen := &brain.MockGenerator{Err: fmt.Errorf("%w: connect refused", brain.ErrUnavailable)}
	ts, _ := testServer(t, gen)

	res, err := http.Post(ts.URL+"/api/chat", "application/json", turnBody(t, "hello"))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadGateway)
	}
}

func TestChatStreamWireFormat(t *testing.T) {
	ts, _ := testServer(t, brain.NewMockGenerator("Ahoy there! Fine weather."))

	res, err := http.Post(ts.URL+"/api/chat/stream", "application/json", turnBody(t, "how be ye?"))
	if err != nil {
		t.Fatalf("POST /api/chat/stream error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content-type = %q", ct)
	}

	var events []any
	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" && !strings.HasPrefix(line, protocol.FramePrefix) {
			t.Fatalf("malformed wire line: %q", line)
		}
		event, ok, err := protocol.ParseFrame(line)
		if err != nil {
			t.Fatalf("parse frame %q: %v", line, err)
		}
		if ok {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("read stream: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("events = %d, want metadata + 2 chunks + complete", len(events))
	}
	meta, ok := events[0].(protocol.Metadata)
	if !ok || meta.TotalChunks != 2 {
		t.Fatalf("events[0] = %#v", events[0])
	}
	for i := 0; i < 2; i++ {
		chunk, ok := events[1+i].(protocol.AudioChunk)
		if !ok || chunk.ChunkID != i+1 {
			t.Fatalf("events[%d] = %#v", 1+i, events[1+i])
		}
	}
	done, ok := events[3].(protocol.Complete)
	if !ok || done.Text != "Ahoy there! Fine weather." {
		t.Fatalf("events[3] = %#v", events[3])
	}
}

func TestChatStreamBackendFailureEmitsErrorEvent(t *testing.T) {
	gen := &brain.MockGenerator{Err: fmt.Errorf("%w: backend timeout", brain.ErrUnavailable)}
	ts, _ := testServer(t, gen)

	res, err := http.Post(ts.URL+"/api/chat/stream", "application/json", turnBody(t, "hello"))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer res.Body.Close()

	var events []any
	scanner := bufio.NewScanner(res.Body)
	for scanner.Scan() {
		event, ok, err := protocol.ParseFrame(scanner.Text())
		if err != nil {
			t.Fatalf("parse frame: %v", err)
		}
		if ok {
			events = append(events, event)
		}
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want exactly one error event", len(events))
	}
	errEvt, ok := events[0].(protocol.Error)
	if !ok || !strings.Contains(errEvt.Message, "backend timeout") {
		t.Fatalf("events[0] = %#v", events[0])
	}
}

func TestChatWSMirrorsEventStream(t *testing.T) {
	ts, _ := testServer(t, brain.NewMockGenerator("Ahoy there! Fine weather."))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/chat/ws"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s error = %v", wsURL, err)
	}
	defer conn.Close()
	defer res.Body.Close()

	turn := map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": "how be ye?"},
		},
	}
	if err := conn.WriteJSON(turn); err != nil {
		t.Fatalf("WriteJSON error = %v", err)
	}

	var events []any
	for len(events) < 4 {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage error = %v (after %d events)", err, len(events))
		}
		event, err := protocol.ParseEvent(data)
		if err != nil {
			t.Fatalf("ParseEvent(%s) error = %v", data, err)
		}
		events = append(events, event)
	}

	meta, ok := events[0].(protocol.Metadata)
	if !ok || meta.TotalChunks != 2 {
		t.Fatalf("events[0] = %#v, want metadata with 2 chunks", events[0])
	}
	for i := 0; i < 2; i++ {
		chunk, ok := events[1+i].(protocol.AudioChunk)
		if !ok || chunk.ChunkID != i+1 {
			t.Fatalf("events[%d] = %#v, want ordered audio chunk %d", 1+i, events[1+i], i+1)
		}
	}
	done, ok := events[3].(protocol.Complete)
	if !ok || done.Text != "Ahoy there! Fine weather." {
		t.Fatalf("events[3] = %#v, want complete", events[3])
	}

	// An invalid turn gets an error event without closing the connection.
	if err := conn.WriteJSON(map[string]any{"messages": []any{}}); err != nil {
		t.Fatalf("WriteJSON error = %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage error = %v", err)
	}
	event, err := protocol.ParseEvent(data)
	if err != nil {
		t.Fatalf("ParseEvent(%s) error = %v", data, err)
	}
	errEvt, ok := event.(protocol.Error)
	if !ok || errEvt.Message != "invalid turn request" {
		t.Fatalf("event = %#v, want invalid-request error", event)
	}
}

func TestHealthAndReady(t *testing.T) {
	ts, _ := testServer(t, brain.NewMockGenerator(""))

	for _, path := range []string{"/healthz", "/readyz"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, res.StatusCode)
		}
	}
}
