package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/corsairworks/bones/internal/audio"
	"github.com/corsairworks/bones/internal/brain"
	"github.com/corsairworks/bones/internal/config"
	"github.com/corsairworks/bones/internal/httpapi"
	"github.com/corsairworks/bones/internal/observability"
	"github.com/corsairworks/bones/internal/stream"
	"github.com/corsairworks/bones/internal/transcript"
	"github.com/corsairworks/bones/internal/tts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := transcript.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("transcript store init failed: %v", err)
	}
	defer store.Close()

	generator := buildGenerator(cfg)
	worker := tts.NewWorker(buildEngines(cfg))
	sequencer := stream.NewSequencer(generator, worker, metrics, cfg.LLMStreaming, cfg.TTSWorkers)

	api := httpapi.New(cfg, sequencer, generator, store, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func buildGenerator(cfg config.Config) brain.Generator {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "mock":
		log.Printf("reply backend: mock")
		return brain.NewMockGenerator("")
	case "http", "":
		log.Printf("reply backend: %s (model %s, streaming %v)", cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMStreaming)
		return brain.NewHTTPGenerator(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
	default:
		log.Fatalf("invalid LLM_PROVIDER: %q (expected http|mock)", cfg.LLMProvider)
		return nil
	}
}

// buildEngines resolves the primary synthesis engine and the last-resort
// fallback that keeps the character audible when synthesis fails.
func buildEngines(cfg config.Config) (primary, fallback tts.Synthesizer) {
	tryElevenLabs := func() bool {
		if strings.TrimSpace(cfg.ElevenLabsAPIKey) == "" {
			return false
		}
		primary = tts.NewElevenLabsEngine(tts.ElevenLabsConfig{
			APIKey:       cfg.ElevenLabsAPIKey,
			BaseURL:      cfg.ElevenLabsBaseURL,
			VoiceID:      cfg.ElevenLabsVoiceID,
			ModelID:      cfg.ElevenLabsModelID,
			OutputFormat: cfg.ElevenLabsOutputFormat,
			Timeout:      cfg.ElevenLabsTimeout,
		})
		log.Printf("tts engine: elevenlabs (voice %s)", cfg.ElevenLabsVoiceID)
		return true
	}
	tryExec := func(fatal bool) bool {
		if strings.TrimSpace(cfg.TTSExecCommand) == "" {
			if fatal {
				log.Fatalf("TTS_PROVIDER=exec but TTS_EXEC_COMMAND is not set")
			}
			return false
		}
		engine, err := tts.NewExecEngine(cfg.TTSExecCommand)
		if err != nil {
			if fatal {
				log.Fatalf("exec tts engine init failed: %v", err)
			}
			log.Printf("exec tts engine unavailable: %v", err)
			return false
		}
		primary = engine
		log.Printf("tts engine: exec (%s)", cfg.TTSExecCommand)
		return true
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.TTSProvider))
	switch mode {
	case "elevenlabs":
		if !tryElevenLabs() {
			log.Fatalf("TTS_PROVIDER=elevenlabs but ELEVENLABS_API_KEY is not set")
		}
	case "exec":
		_ = tryExec(true)
	case "static":
		engine, err := tts.NewStaticEngine(cfg.TTSFallbackClip)
		if err != nil {
			log.Fatalf("static tts engine init failed: %v", err)
		}
		primary = engine
		log.Printf("tts engine: static clip %s", cfg.TTSFallbackClip)
	case "mock":
		primary = tts.NewMockEngine()
		log.Printf("tts engine: mock")
	case "auto", "":
		if tryElevenLabs() {
			break
		}
		if tryExec(false) {
			break
		}
		primary = tts.NewMockEngine()
		log.Printf("tts engine: mock (no elevenlabs key and no exec command)")
	default:
		log.Fatalf("invalid TTS_PROVIDER: %q (expected auto|elevenlabs|exec|static|mock)", cfg.TTSProvider)
	}

	if strings.TrimSpace(cfg.TTSFallbackClip) != "" && mode != "static" {
		engine, err := tts.NewStaticEngine(cfg.TTSFallbackClip)
		if err != nil {
			log.Fatalf("fallback clip init failed: %v", err)
		}
		fallback = engine
	} else if mode != "static" {
		// Half a second of low tone; better than dead air when a sentence
		// fails and no apology clip is recorded.
		fallback = tts.NewStaticEngineFromClip(audio.SineWAV(220, audio.DefaultSampleRate/2, audio.DefaultSampleRate))
	}
	return primary, fallback
}
