package playback

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Filler plays a short pre-recorded clip ("hmm", "let me think") on the
// shared sink while the first chunk is being synthesized. A started clip is
// never cut off; real playback waits for it to finish and then a short
// settle pause so speech does not pile onto the filler's tail.
type Filler struct {
	sink   Sink
	settle time.Duration
	clips  [][]byte
	names  []string

	mu     sync.Mutex
	last   int
	active bool
	done   chan struct{}
}

// NewFiller loads every .wav and .mp3 clip under dir. A missing or empty
// directory yields a disabled filler, not an error.
func NewFiller(sink Sink, dir string, settle time.Duration) (*Filler, error) {
	f := &Filler{sink: sink, settle: settle, last: -1}
	if strings.TrimSpace(dir) == "" {
		return f, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("read filler dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".wav", ".mp3":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		clip, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read filler clip %s: %w", name, err)
		}
		if len(clip) == 0 {
			continue
		}
		f.clips = append(f.clips, clip)
		f.names = append(f.names, name)
	}
	return f, nil
}

func (f *Filler) Enabled() bool { return len(f.clips) > 0 }

// pick chooses a clip index, avoiding an immediate repeat when possible.
func (f *Filler) pick() int {
	if len(f.clips) == 1 {
		return 0
	}
	for {
		i := rand.Intn(len(f.clips))
		if i != f.last {
			return i
		}
	}
}

// Start plays one filler clip without blocking. A turn with a filler already
// in flight keeps the running one.
func (f *Filler) Start(ctx context.Context) {
	if !f.Enabled() {
		return
	}
	f.mu.Lock()
	if f.active {
		f.mu.Unlock()
		return
	}
	i := f.pick()
	f.last = i
	f.active = true
	f.done = make(chan struct{})
	clip := f.clips[i]
	done := f.done
	f.mu.Unlock()

	go func() {
		defer func() {
			f.mu.Lock()
			f.active = false
			f.mu.Unlock()
			close(done)
		}()
		_ = f.sink.Play(ctx, clip)
	}()
}

// AwaitQuiet blocks until any in-flight filler clip has finished and the
// settle pause has passed. It returns immediately when no filler is playing.
func (f *Filler) AwaitQuiet(ctx context.Context) error {
	f.mu.Lock()
	done := f.done
	active := f.active
	f.mu.Unlock()

	if !active || done == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}
	if f.settle > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.settle):
		}
	}
	return nil
}
