// Package audio holds the minimal WAV plumbing the pipeline needs: wrapping
// PCM in a RIFF container, recognizing WAV payloads so the player can decide
// between direct playback and transcoding, and generating placeholder tones.
package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
)

const DefaultSampleRate = 16000

type wavHeader struct {
	RIFF          [4]byte
	FileSize      uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

// EncodeWAVPCM16LE wraps raw PCM16LE mono samples in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWAVPCM16LETo(&buf, pcm, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAVPCM16LETo writes raw PCM16LE mono samples to out as a WAV stream.
func WriteWAVPCM16LETo(out io.Writer, pcm []byte, sampleRate int) error {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	hdr := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		FileSize:      36 + uint32(len(pcm)),
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * numChannels * bitsPerSample / 8),
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(len(pcm)),
	}
	if err := binary.Write(out, binary.LittleEndian, hdr); err != nil {
		return err
	}
	_, err := out.Write(pcm)
	return err
}

// IsWAV reports whether data starts with a RIFF/WAVE header. Non-WAV payloads
// (MP3 from hosted voices) need a transcoding player.
func IsWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

// SineWAV renders a mono sine tone as a complete WAV clip. Used as the
// built-in placeholder when no recorded fallback clip is configured.
func SineWAV(freqHz float64, samples, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(0.25 * math.MaxInt16 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	wav, _ := EncodeWAVPCM16LE(pcm, sampleRate)
	return wav
}
