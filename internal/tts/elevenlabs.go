package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/corsairworks/bones/internal/reliability"
)

type ElevenLabsConfig struct {
	APIKey       string
	BaseURL      string
	VoiceID      string
	ModelID      string
	OutputFormat string
	Timeout      time.Duration
}

// ElevenLabsEngine synthesizes speech through the ElevenLabs HTTP convert
// endpoint. One call per sentence keeps latency predictable for short
// character replies.
type ElevenLabsEngine struct {
	cfg    ElevenLabsConfig
	client *http.Client
}

func NewElevenLabsEngine(cfg ElevenLabsConfig) *ElevenLabsEngine {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "eleven_monolingual_v1"
	}
	if strings.TrimSpace(cfg.OutputFormat) == "" {
		cfg.OutputFormat = "mp3_44100_128"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ElevenLabsEngine{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (e *ElevenLabsEngine) Name() string { return "elevenlabs" }

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

const elevenLabsMaxAttempts = 3

func (e *ElevenLabsEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, synthErr(e.Name(), ErrEmptyInput)
	}
	if strings.TrimSpace(e.cfg.VoiceID) == "" {
		return nil, synthErr(e.Name(), fmt.Errorf("voice_id is required"))
	}

	payload, err := json.Marshal(elevenLabsRequest{Text: text, ModelID: e.cfg.ModelID})
	if err != nil {
		return nil, synthErr(e.Name(), err)
	}

	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") +
		"/v1/text-to-speech/" + url.PathEscape(e.cfg.VoiceID) +
		"?output_format=" + url.QueryEscape(e.cfg.OutputFormat)

	var lastErr error
	for attempt := 0; attempt < elevenLabsMaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := reliability.ExponentialBackoff(attempt-1, 200*time.Millisecond, 2*time.Second)
			select {
			case <-ctx.Done():
				return nil, synthErr(e.Name(), ctx.Err())
			case <-time.After(backoff):
			}
		}

		audio, retryable, err := e.convert(ctx, endpoint, payload)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, synthErr(e.Name(), lastErr)
}

func (e *ElevenLabsEngine) convert(ctx context.Context, endpoint string, payload []byte) (audio []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	res, err := e.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, reliability.IsRetryableHTTPStatus(res.StatusCode),
			fmt.Errorf("elevenlabs status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	audio, err = io.ReadAll(res.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read audio body: %w", err)
	}
	if len(audio) == 0 {
		return nil, false, fmt.Errorf("elevenlabs returned empty audio")
	}
	return audio, false, nil
}
