// Package playback owns the client's audio path: an exclusive sink wrapping
// an external player process, a serialized chunk queue, and the filler
// coordinator that covers synthesis latency.
package playback

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/corsairworks/bones/internal/audio"
)

// Sink plays one clip to completion. Implementations are exclusive-use: a
// second Play must not start before the first returns.
type Sink interface {
	Play(ctx context.Context, clip []byte) error
}

// ExecSink pipes audio into an external player process. WAV payloads go to
// the direct player; anything else (MP3 from hosted voices) goes to the
// transcoding player.
type ExecSink struct {
	mu        sync.Mutex
	player    []string
	transcode []string
}

func NewExecSink(playerCommand, transcodeCommand string) (*ExecSink, error) {
	parser := shellwords.NewParser()
	player, err := parser.Parse(playerCommand)
	if err != nil {
		return nil, fmt.Errorf("parse player command: %w", err)
	}
	if len(player) == 0 {
		return nil, fmt.Errorf("empty player command")
	}

	var transcode []string
	if strings.TrimSpace(transcodeCommand) != "" {
		transcode, err = parser.Parse(transcodeCommand)
		if err != nil {
			return nil, fmt.Errorf("parse transcode command: %w", err)
		}
	}
	return &ExecSink{player: player, transcode: transcode}, nil
}

func (s *ExecSink) Play(ctx context.Context, clip []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	argv := s.player
	if !audio.IsWAV(clip) && len(s.transcode) > 0 {
		argv = s.transcode
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(clip)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("player %s: %w: %s", argv[0], err, detail)
		}
		return fmt.Errorf("player %s: %w", argv[0], err)
	}
	return nil
}
