package brain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPGenerator speaks the OpenAI-compatible chat-completions protocol over
// HTTP, in both whole-reply and server-sent-delta modes.
type HTTPGenerator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGenerator(baseURL, apiKey string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &HTTPGenerator{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: timeout},
	}
}

type completionRequest struct {
	Model    string `json:"model"`
	Messages []any  `json:"messages"`
	Stream   bool   `json:"stream,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type completionDelta struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (g *HTTPGenerator) Reply(ctx context.Context, req Request) (string, error) {
	res, err := g.send(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProtocolError{Detail: "malformed completion JSON: " + err.Error()}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProtocolError{Detail: "no response choices returned"}
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", &ProtocolError{Detail: "empty reply content"}
	}
	return text, nil
}

func (g *HTTPGenerator) StreamReply(ctx context.Context, req Request, onDelta DeltaHandler) (string, error) {
	res, err := g.send(ctx, req, true)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
		if line == "[DONE]" {
			break
		}

		var chunk completionDelta
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return "", &ProtocolError{Detail: "malformed stream delta: " + err.Error()}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		out.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return "", err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: stream read: %v", ErrUnavailable, err)
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", &ProtocolError{Detail: "stream produced no content"}
	}
	return out.String(), nil
}

func (g *HTTPGenerator) send(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	messages := make([]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, m)
	}
	payload, err := json.Marshal(completionRequest{Model: req.Model, Messages: messages, Stream: stream})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	res, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		res.Body.Close()
		return nil, &ProtocolError{Status: res.StatusCode, Detail: strings.TrimSpace(string(body))}
	}
	return res, nil
}
