package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/corsairworks/bones/internal/chat"
	"github.com/corsairworks/bones/internal/client"
	"github.com/corsairworks/bones/internal/config"
	"github.com/corsairworks/bones/internal/playback"
)

const defaultPrompt = "You are Bones, a grizzled old pirate skeleton who loves a good yarn. " +
	"Answer in character: salty, warm-hearted, and brief. Keep replies to a few short sentences " +
	"so they can be spoken aloud."

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	prompt := loadPrompt(cfg.PromptFile)

	sink, err := playback.NewExecSink(cfg.AudioPlayer, cfg.TranscodePlayer)
	if err != nil {
		log.Fatalf("audio player init failed: %v", err)
	}

	var filler *playback.Filler
	if cfg.FillerEnabled {
		filler, err = playback.NewFiller(sink, cfg.FillerDir, cfg.PostFillerDelay)
		if err != nil {
			log.Fatalf("filler init failed: %v", err)
		}
		if !filler.Enabled() {
			log.Printf("no filler clips in %s; speaking without fillers", cfg.FillerDir)
		}
	}

	runner := client.NewRunner(cfg.ServerURL, cfg.LLMModel, sink, filler)
	history := chat.NewHistory(prompt)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Talking to %s. Type your message, or \"quit\" to leave.\n", cfg.ServerURL)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		result, err := runner.ProcessTurn(ctx, history, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Printf("turn failed: %v", err)
			continue
		}
		history.Trim(cfg.HistoryWindow)

		fmt.Printf("Bones: %s\n", result.ReplyText)
		if result.ChunksPlayed < result.ChunksTotal {
			fmt.Printf("(%d of %d chunks played)\n", result.ChunksPlayed, result.ChunksTotal)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("stdin: %v", err)
	}
	fmt.Println("Fair winds, matey.")
}

func loadPrompt(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("prompt file %s: %v", path, err)
		}
		return defaultPrompt
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return defaultPrompt
	}
	return prompt
}
