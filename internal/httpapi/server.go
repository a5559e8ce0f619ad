// Package httpapi exposes the speech-response pipeline over HTTP: a
// whole-turn JSON endpoint, the ordered event stream, and a websocket mirror
// of the same events for browser clients.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/corsairworks/bones/internal/brain"
	"github.com/corsairworks/bones/internal/chat"
	"github.com/corsairworks/bones/internal/config"
	"github.com/corsairworks/bones/internal/observability"
	"github.com/corsairworks/bones/internal/protocol"
	"github.com/corsairworks/bones/internal/stream"
	"github.com/corsairworks/bones/internal/transcript"
)

// Turner runs one conversational turn, emitting ordered stream events.
type Turner interface {
	Run(ctx context.Context, req brain.Request, emit stream.Emitter) (stream.Result, error)
}

type Server struct {
	cfg       config.Config
	turner    Turner
	generator brain.Generator
	store     transcript.Store
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, turner Turner, generator brain.Generator, store transcript.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		turner:    turner,
		generator: generator,
		store:     store,
		metrics:   metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Same-origin only by default so other websites cannot drive
				// the character if the service is exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/chat", s.handleChat)
	r.Post("/api/chat/stream", s.handleChatStream)
	r.Get("/api/chat/ws", s.handleChatWS)

	return r
}

// turnRequest is the body of both chat endpoints. Model is optional; the
// configured model is used when absent.
type turnRequest struct {
	Model    string         `json:"model,omitempty"`
	Messages []chat.Message `json:"messages"`
}

type turnResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"model":     s.cfg.LLMModel,
		"streaming": s.cfg.LLMStreaming,
	})
}

func (s *Server) decodeTurn(r *http.Request) (brain.Request, error) {
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil {
		return brain.Request{}, err
	}
	if len(req.Messages) == 0 {
		return brain.Request{}, errors.New("messages must not be empty")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = s.cfg.LLMModel
	}
	return brain.Request{Model: model, Messages: req.Messages}, nil
}

// handleChat answers a whole turn as plain JSON without synthesis. Kept for
// text-only clients.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	w.Header().Set("X-Request-ID", reqID)

	turn, err := s.decodeTurn(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	reply, err := s.generator.Reply(r.Context(), turn)
	if err != nil {
		s.metrics.BackendErrors.WithLabelValues(backendErrorKind(err)).Inc()
		respondError(w, http.StatusBadGateway, "backend_error", err.Error())
		return
	}
	s.saveTurn(r.Context(), reqID, turn, stream.Result{ReplyText: reply})
	respondJSON(w, http.StatusOK, turnResponse{Response: reply})
}

func backendErrorKind(err error) string {
	if errors.Is(err, brain.ErrUnavailable) {
		return "unavailable"
	}
	return "protocol"
}

// handleChatStream runs a full speech turn and streams ordered events as
// newline-delimited data frames, flushed one event at a time.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)

	turn, err := s.decodeTurn(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "unsupported", "response writer cannot stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Request-ID", reqID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.metrics.StreamClients.Inc()
	defer s.metrics.StreamClients.Dec()

	result, err := s.turner.Run(r.Context(), turn, func(event any) error {
		frame, err := protocol.EncodeFrame(event)
		if err != nil {
			return err
		}
		if _, err := w.Write(frame); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		log.Printf("stream %s aborted: %v", reqID, err)
		return
	}
	s.saveTurn(r.Context(), reqID, turn, result)
}

// handleChatWS mirrors the event stream over a websocket. One turn per
// message: the client sends a turnRequest, the server answers with the full
// event sequence as JSON text messages. Writes stay on this goroutine.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.StreamClients.Inc()
	defer s.metrics.StreamClients.Dec()

	conn.SetReadLimit(1 << 20)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req turnRequest
		if err := json.Unmarshal(data, &req); err != nil || len(req.Messages) == 0 {
			_ = conn.WriteJSON(protocol.Error{Type: protocol.TypeError, Message: "invalid turn request"})
			continue
		}
		model := strings.TrimSpace(req.Model)
		if model == "" {
			model = s.cfg.LLMModel
		}

		reqID := uuid.NewString()
		turn := brain.Request{Model: model, Messages: req.Messages}
		result, err := s.turner.Run(r.Context(), turn, func(event any) error {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			return conn.WriteJSON(event)
		})
		if err != nil {
			return
		}
		s.saveTurn(r.Context(), reqID, turn, result)
	}
}

func (s *Server) saveTurn(ctx context.Context, reqID string, turn brain.Request, result stream.Result) {
	if s.store == nil || result.ReplyText == "" {
		return
	}
	userText := ""
	for i := len(turn.Messages) - 1; i >= 0; i-- {
		if turn.Messages[i].Role == chat.RoleUser {
			userText = turn.Messages[i].Content
			break
		}
	}
	err := s.store.SaveTurn(ctx, transcript.TurnRecord{
		RequestID:    reqID,
		UserText:     userText,
		ReplyText:    result.ReplyText,
		ChunksTotal:  result.ChunksTotal,
		ChunksFailed: result.ChunksFailed,
	})
	if err != nil {
		log.Printf("transcript save %s: %v", reqID, err)
	}
}

func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" {
		return id
	}
	return uuid.NewString()
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
