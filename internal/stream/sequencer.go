// Package stream drives one conversational turn on the server: it pulls
// reply text from the backend, cuts it into sentences, synthesizes them
// concurrently, and emits an ordered event stream.
package stream

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/corsairworks/bones/internal/brain"
	"github.com/corsairworks/bones/internal/observability"
	"github.com/corsairworks/bones/internal/protocol"
	"github.com/corsairworks/bones/internal/segment"
	"github.com/corsairworks/bones/internal/tts"
)

// Emitter delivers one ordered stream event to the transport. An error means
// the client is gone and the turn should stop producing.
type Emitter func(event any) error

// Sequencer owns the per-turn pipeline. Sentences are synthesized by a small
// worker pool, but events are released strictly in segmentation order with
// 1-based gapless chunk ids, buffering any completion that finishes early.
type Sequencer struct {
	generator brain.Generator
	worker    *tts.Worker
	metrics   *observability.Metrics
	streaming bool
	workers   int
}

// Result summarizes a finished turn for the caller and the transcript log.
type Result struct {
	ReplyText    string
	ChunksTotal  int
	ChunksFailed int
}

func NewSequencer(generator brain.Generator, worker *tts.Worker, metrics *observability.Metrics, streaming bool, workers int) *Sequencer {
	if workers <= 0 {
		workers = 2
	}
	return &Sequencer{
		generator: generator,
		worker:    worker,
		metrics:   metrics,
		streaming: streaming,
		workers:   workers,
	}
}

type job struct {
	index int
	text  string
}

type synthResult struct {
	index  int
	spoken string
	audio  []byte
	err    error
}

// Run executes one turn and always finishes the stream with exactly one
// terminal event: complete on success (even if every sentence failed
// synthesis) or error when the backend let the whole turn down. The returned
// error reports transport failures only.
func (s *Sequencer) Run(ctx context.Context, req brain.Request, emit Emitter) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()

	if s.streaming {
		return s.runStreaming(ctx, cancel, req, emit, start)
	}
	return s.runWholeReply(ctx, cancel, req, emit, start)
}

func (s *Sequencer) runWholeReply(ctx context.Context, cancel context.CancelFunc, req brain.Request, emit Emitter, start time.Time) (Result, error) {
	text, err := s.generator.Reply(ctx, req)
	if err != nil {
		s.emitTurnError(emit, err)
		return Result{}, nil
	}

	sentences, remainder := segment.Split(text)
	if final, ok := segment.Flush(remainder); ok {
		sentences = append(sentences, final)
	}

	// The reply is fully known, so metadata can carry an exact chunk count:
	// every sentence that will occupy a chunk slot after normalization.
	total := 0
	for _, sentence := range sentences {
		if tts.Pronounceable(tts.Normalize(sentence)) {
			total++
		}
	}
	if err := emit(protocol.Metadata{Type: protocol.TypeMetadata, TotalChunks: total, Text: text}); err != nil {
		return Result{}, err
	}

	jobs := make(chan job)
	go func() {
		defer close(jobs)
		for i, sentence := range sentences {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{index: i, text: sentence}:
			}
		}
	}()

	emitted, failed, emitErr := s.synthesize(ctx, cancel, jobs, emit, start)
	if emitErr != nil {
		return Result{}, emitErr
	}
	if err := emit(protocol.Complete{Type: protocol.TypeComplete, Text: text}); err != nil {
		return Result{}, err
	}
	s.metrics.Turns.WithLabelValues("complete").Inc()
	return Result{ReplyText: text, ChunksTotal: emitted, ChunksFailed: failed}, nil
}

func (s *Sequencer) runStreaming(ctx context.Context, cancel context.CancelFunc, req brain.Request, emit Emitter, start time.Time) (Result, error) {
	jobs := make(chan job)

	type prodResult struct {
		full string
		err  error
	}
	prodDone := make(chan prodResult, 1)

	go func() {
		defer close(jobs)
		index := 0
		buffer := ""
		dispatch := func(sentence string) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case jobs <- job{index: index, text: sentence}:
				index++
				return nil
			}
		}

		full, err := s.generator.StreamReply(ctx, req, func(delta string) error {
			buffer += delta
			var done []string
			done, buffer = segment.Split(buffer)
			for _, sentence := range done {
				if err := dispatch(sentence); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			if final, ok := segment.Flush(buffer); ok {
				err = dispatch(final)
			}
		}
		prodDone <- prodResult{full: full, err: err}
	}()

	emitted, failed, emitErr := s.synthesize(ctx, cancel, jobs, emit, start)
	prod := <-prodDone
	if emitErr != nil {
		return Result{}, emitErr
	}
	if prod.err != nil && !errors.Is(prod.err, context.Canceled) {
		s.emitTurnError(emit, prod.err)
		return Result{}, nil
	}
	if err := emit(protocol.Complete{Type: protocol.TypeComplete, Text: prod.full}); err != nil {
		return Result{}, err
	}
	s.metrics.Turns.WithLabelValues("complete").Inc()
	return Result{ReplyText: prod.full, ChunksTotal: emitted, ChunksFailed: failed}, nil
}

// synthesize fans jobs out to the worker pool and releases events in job
// order, allocating chunk ids at emission time. Unpronounceable sentences
// release their ordering slot without claiming an id.
func (s *Sequencer) synthesize(ctx context.Context, cancel context.CancelFunc, jobs <-chan job, emit Emitter, start time.Time) (total, failed int, emitErr error) {
	results := make(chan synthResult, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				audio, spoken, err := s.worker.Speak(ctx, j.text)
				results <- synthResult{index: j.index, spoken: spoken, audio: audio, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	pending := make(map[int]synthResult)
	next := 0
	chunkID := 0
	firstAudio := false

	for r := range results {
		if emitErr != nil {
			continue // drain; the client is gone
		}
		pending[r.index] = r
		for {
			buffered, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			if buffered.err != nil && tts.IsSkip(buffered.err) {
				continue
			}
			chunkID++

			var event any
			if buffered.err != nil {
				failed++
				s.countChunkError(buffered.err)
				event = protocol.ChunkError{
					Type:      protocol.TypeChunkError,
					ChunkID:   chunkID,
					TextChunk: buffered.spoken,
					Message:   buffered.err.Error(),
				}
			} else {
				if !firstAudio {
					firstAudio = true
					s.metrics.ObserveFirstAudioLatency(time.Since(start))
				}
				s.metrics.ChunksSynthesized.Inc()
				event = protocol.AudioChunk{
					Type:        protocol.TypeAudioChunk,
					ChunkID:     chunkID,
					TextChunk:   buffered.spoken,
					AudioBase64: base64.StdEncoding.EncodeToString(buffered.audio),
				}
			}
			if err := emit(event); err != nil {
				emitErr = err
				cancel()
				break
			}
		}
	}
	return chunkID, failed, emitErr
}

func (s *Sequencer) emitTurnError(emit Emitter, cause error) {
	kind := "protocol"
	var pe *brain.ProtocolError
	switch {
	case errors.Is(cause, brain.ErrUnavailable):
		kind = "unavailable"
	case errors.As(cause, &pe):
		kind = "protocol"
	}
	s.metrics.BackendErrors.WithLabelValues(kind).Inc()
	s.metrics.Turns.WithLabelValues("error").Inc()
	_ = emit(protocol.Error{Type: protocol.TypeError, Message: cause.Error()})
}

func (s *Sequencer) countChunkError(err error) {
	engine := "unknown"
	var se *tts.SynthesisError
	if errors.As(err, &se) {
		engine = se.Engine
	}
	s.metrics.ChunkErrors.WithLabelValues(engine).Inc()
}
