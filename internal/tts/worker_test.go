package tts

import (
	"context"
	"errors"
	"testing"
)

func TestWorkerSpeaksThroughPrimary(t *testing.T) {
	primary := NewMockEngine()
	w := NewWorker(primary, nil)

	audio, spoken, err := w.Speak(context.Background(), "Ahoy there!")
	if err != nil {
		t.Fatalf("Speak error = %v", err)
	}
	if spoken != "Ahoy there!" {
		t.Fatalf("spoken = %q", spoken)
	}
	if string(audio) != "Ahoy there!" {
		t.Fatalf("audio = %q", audio)
	}
}

func TestWorkerNormalizesBeforeSynthesis(t *testing.T) {
	primary := NewMockEngine()
	w := NewWorker(primary, nil)

	_, spoken, err := w.Speak(context.Background(), "I'm ready \U0001F480!")
	if err != nil {
		t.Fatalf("Speak error = %v", err)
	}
	if spoken != "I am ready !" {
		t.Fatalf("spoken = %q", spoken)
	}
	calls := primary.Calls()
	if len(calls) != 1 || calls[0] != spoken {
		t.Fatalf("engine saw %q, want the normalized text %q", calls, spoken)
	}
}

func TestWorkerSkipsUnpronounceableInput(t *testing.T) {
	primary := NewMockEngine()
	w := NewWorker(primary, nil)

	for _, in := range []string{"", "   ", "...!!"} {
		_, _, err := w.Speak(context.Background(), in)
		if !IsSkip(err) {
			t.Fatalf("Speak(%q) err = %v, want skip", in, err)
		}
	}
	if len(primary.Calls()) != 0 {
		t.Fatalf("engine called for unpronounceable input: %q", primary.Calls())
	}
}

func TestWorkerFallsBackOnPrimaryFailure(t *testing.T) {
	primary := NewMockEngine()
	primary.FailText = "trouble"
	fallback := NewMockEngine()
	w := NewWorker(primary, fallback)

	audio, _, err := w.Speak(context.Background(), "trouble ahead")
	if err != nil {
		t.Fatalf("Speak error = %v, want fallback to cover", err)
	}
	if string(audio) != "trouble ahead" {
		t.Fatalf("audio = %q", audio)
	}
	if len(fallback.Calls()) != 1 {
		t.Fatalf("fallback calls = %d, want 1", len(fallback.Calls()))
	}
}

func TestWorkerSurfacesChunkErrorWhenBothFail(t *testing.T) {
	primary := NewMockEngine()
	primary.FailText = "trouble"
	fallback := NewMockEngine()
	fallback.FailText = "trouble"
	w := NewWorker(primary, fallback)

	_, _, err := w.Speak(context.Background(), "trouble ahead")
	if err == nil {
		t.Fatalf("expected error when both engines fail")
	}
	var se *SynthesisError
	if !errors.As(err, &se) {
		t.Fatalf("err type = %T, want *SynthesisError", err)
	}
	if IsSkip(err) {
		t.Fatalf("double failure misclassified as skip")
	}
}

func TestWorkerNoFallbackSurfacesPrimaryError(t *testing.T) {
	primary := NewMockEngine()
	primary.FailText = "trouble"
	w := NewWorker(primary, nil)

	_, _, err := w.Speak(context.Background(), "trouble ahead")
	var se *SynthesisError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SynthesisError", err)
	}
	if se.Engine != "mock" {
		t.Fatalf("engine = %q", se.Engine)
	}
}
