package protocol

import (
	"errors"
	"testing"
)

func TestEncodeFrameWireFormat(t *testing.T) {
	frame, err := EncodeFrame(Metadata{Type: TypeMetadata, TotalChunks: 3, Text: "Ahoy!"})
	if err != nil {
		t.Fatalf("EncodeFrame error = %v", err)
	}
	want := `data: {"type":"metadata","total_chunks":3,"text":"Ahoy!"}` + "\n\n"
	if string(frame) != want {
		t.Fatalf("frame = %q, want %q", frame, want)
	}
}

func TestEncodeFrameAudioChunkWireFormat(t *testing.T) {
	frame, err := EncodeFrame(AudioChunk{Type: TypeAudioChunk, ChunkID: 1, TextChunk: "Ahoy!", AudioBase64: "UklGRg=="})
	if err != nil {
		t.Fatalf("EncodeFrame error = %v", err)
	}
	want := `data: {"type":"audio_chunk","chunk_id":1,"text_chunk":"Ahoy!","audio_base64":"UklGRg=="}` + "\n\n"
	if string(frame) != want {
		t.Fatalf("frame = %q, want %q", frame, want)
	}
}

func TestEncodeFrameTerminalEvents(t *testing.T) {
	frame, err := EncodeFrame(Complete{Type: TypeComplete, Text: "done"})
	if err != nil {
		t.Fatalf("EncodeFrame complete error = %v", err)
	}
	if string(frame) != `data: {"type":"complete","text":"done"}`+"\n\n" {
		t.Fatalf("complete frame = %q", frame)
	}

	frame, err = EncodeFrame(Error{Type: TypeError, Message: "backend unreachable"})
	if err != nil {
		t.Fatalf("EncodeFrame error event error = %v", err)
	}
	if string(frame) != `data: {"type":"error","message":"backend unreachable"}`+"\n\n" {
		t.Fatalf("error frame = %q", frame)
	}
}

func TestParseFrameRoundTrip(t *testing.T) {
	original := AudioChunk{Type: TypeAudioChunk, ChunkID: 2, TextChunk: "How be ye?", AudioBase64: "YWJj"}
	frame, err := EncodeFrame(original)
	if err != nil {
		t.Fatalf("EncodeFrame error = %v", err)
	}

	event, ok, err := ParseFrame(string(frame[:len(frame)-1])) // reader sees single lines
	if err != nil || !ok {
		t.Fatalf("ParseFrame = %v, %v", ok, err)
	}
	chunk, isChunk := event.(AudioChunk)
	if !isChunk {
		t.Fatalf("event type = %T, want AudioChunk", event)
	}
	if chunk != original {
		t.Fatalf("round trip = %+v, want %+v", chunk, original)
	}
}

func TestParseFrameIgnoresNonDataLines(t *testing.T) {
	for _, line := range []string{"", ": keep-alive", "event: ping"} {
		if _, ok, err := ParseFrame(line); ok || err != nil {
			t.Fatalf("ParseFrame(%q) = %v, %v; want ignored", line, ok, err)
		}
	}
}

func TestParseEventRejectsInvalidChunks(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"type":"audio_chunk","chunk_id":0,"audio_base64":"x"}`)); err == nil {
		t.Fatalf("expected error for chunk_id 0")
	}
	if _, err := ParseEvent([]byte(`{"type":"audio_chunk","chunk_id":1}`)); err == nil {
		t.Fatalf("expected error for missing audio payload")
	}
	if _, err := ParseEvent([]byte(`{"type":"mystery"}`)); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
	if _, err := ParseEvent([]byte(`{not json`)); err == nil {
		t.Fatalf("expected envelope error for malformed json")
	}
}
