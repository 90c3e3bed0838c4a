package tts

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/msto63/vorleser/internal/audio/codec"
	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

// MockConfig configures the in-process engine
type MockConfig struct {
	SampleRate int

	// WordDuration is the tone length per word
	WordDuration time.Duration

	// Latency is added to every call
	Latency time.Duration
}

// Mock is a deterministic engine producing WAV tones, one beep per word
type Mock struct {
	cfg MockConfig
}

// NewMock creates a mock engine
func NewMock(cfg MockConfig) *Mock {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if cfg.WordDuration <= 0 {
		cfg.WordDuration = 120 * time.Millisecond
	}
	return &Mock{cfg: cfg}
}

// mockVoices is the fixed offline catalog
var mockVoices = []Voice{
	{Name: "mock-de-katja", ShortName: "de-DE-KatjaNeural", FriendlyName: "Offline Katja", Locale: "de-DE", Gender: "Female"},
	{Name: "mock-de-conrad", ShortName: "de-DE-ConradNeural", FriendlyName: "Offline Conrad", Locale: "de-DE", Gender: "Male"},
	{Name: "mock-en-aria", ShortName: "en-US-AriaNeural", FriendlyName: "Offline Aria", Locale: "en-US", Gender: "Female"},
}

// Voices returns the fixed offline catalog
func (m *Mock) Voices(ctx context.Context) ([]Voice, error) {
	out := make([]Voice, len(mockVoices))
	copy(out, mockVoices)
	SortVoices(out)
	return out, nil
}

// Format returns FormatWAV
func (m *Mock) Format() Format {
	return FormatWAV
}

// Close releases resources
func (m *Mock) Close() error {
	return nil
}

// Synthesize renders one short tone per word. Rate shortens the tones and
// pitch shifts their frequency.
func (m *Mock) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if m.cfg.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.cfg.Latency):
		}
	}

	words := strings.Fields(req.Text)
	if len(words) == 0 {
		return nil, vorerr.Wrap(ErrNoAudio, "mock synthesis").WithCode(vorerr.CodeNoAudio)
	}

	rate := m.cfg.SampleRate
	wordFrames := codec.DurationToFrames(m.cfg.WordDuration, rate) * 100 / (100 + clampRate(req.Rate))
	gap := wordFrames / 4
	freq := 220 + 4*float64(req.Pitch)

	samples := make([]float32, 0, len(words)*(wordFrames+gap))
	for i := range words {
		f := freq * (1 + float64(i%3)/8)
		for j := 0; j < wordFrames; j++ {
			samples = append(samples, float32(0.3*math.Sin(2*math.Pi*f*float64(j)/float64(rate))))
		}
		samples = append(samples, make([]float32, gap)...)
	}

	return codec.EncodeWAV(rate, &codec.Clip{Samples: samples, SampleRate: rate})
}

func clampRate(rate int) int {
	if rate < -90 {
		return -90
	}
	if rate > 100 {
		return 100
	}
	return rate
}
