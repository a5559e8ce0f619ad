package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	shellwords "github.com/mattn/go-shellwords"
)

// ExecEngine synthesizes speech by piping text into a local command
// (espeak-ng, piper, a kokoro wrapper script) that writes encoded audio to
// stdout. The command line comes from configuration and is parsed once.
type ExecEngine struct {
	argv []string

	// Local engines rarely tolerate concurrent invocations; serialize them.
	mu sync.Mutex
}

func NewExecEngine(command string) (*ExecEngine, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command is empty")
	}
	return &ExecEngine{argv: args}, nil
}

func (e *ExecEngine) Name() string { return "exec" }

func (e *ExecEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, synthErr(e.Name(), ErrEmptyInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cmd := exec.CommandContext(ctx, e.argv[0], e.argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, synthErr(e.Name(), fmt.Errorf("%s: %w: %s", e.argv[0], err, detail))
		}
		return nil, synthErr(e.Name(), fmt.Errorf("%s: %w", e.argv[0], err))
	}
	if stdout.Len() == 0 {
		return nil, synthErr(e.Name(), fmt.Errorf("%s produced no audio", e.argv[0]))
	}
	return stdout.Bytes(), nil
}
