// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     audio
// Description: Gapless segment playback using PortAudio
// Author:      Mike Stoffels
// Created:     2026-09-24
// License:     MIT
// ============================================================================

package audio

import (
	"os"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/msto63/vorleser/internal/audio/codec"
	vorerr "github.com/msto63/vorleser/pkg/core/error"
	"github.com/msto63/vorleser/pkg/core/logging"
)

// Config holds configuration for audio playback
type Config struct {
	SampleRate   int
	BufferFrames int
}

// DefaultConfig returns default playback configuration
func DefaultConfig() Config {
	return Config{
		SampleRate:   24000, // Edge neural voices
		BufferFrames: 1024,
	}
}

// End reports that clip Index finished playing. Epoch is the number of
// Delete calls before the clip was queued.
type End struct {
	Epoch uint64
	Index int
}

// Player plays queued audio files back to back on the default output device.
// The output stream is opened on the first Play and closed by Delete.
type Player struct {
	mu     sync.Mutex
	cfg    Config
	q      *queue
	stream *portaudio.Stream
	epoch  uint64
	ended  chan End
	logger *logging.Logger
	once   sync.Once
}

// Open initializes PortAudio and returns a player
func Open(cfg Config) (*Player, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	if cfg.BufferFrames <= 0 {
		cfg.BufferFrames = DefaultConfig().BufferFrames
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, vorerr.Wrap(err, "failed to initialize PortAudio").WithCode(vorerr.CodeAudioInit)
	}

	p := &Player{
		cfg:    cfg,
		q:      newQueue(cfg.SampleRate),
		ended:  make(chan End, 16),
		logger: logging.New("audio"),
	}
	p.logger.Info("Audio output ready", "sample_rate", cfg.SampleRate, "buffer", cfg.BufferFrames)
	return p, nil
}

// Ended delivers a notification for each clip that finished playing.
// It is closed by Close.
func (p *Player) Ended() <-chan End {
	return p.ended
}

// Epoch returns the number of Delete calls so far
func (p *Player) Epoch() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epoch
}

// Queue decodes the file at path and appends it to the play queue
func (p *Player) Queue(path string) (time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, vorerr.Wrap(err, "failed to read audio file").
			WithCode(vorerr.CodeNotFound).
			WithDetail("path", path)
	}

	clip, err := codec.Decode(data)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	clip = p.q.add(clip)
	p.mu.Unlock()

	return clip.Duration(), nil
}

// Play starts or resumes output
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		stream, err := portaudio.OpenDefaultStream(0, 1, float64(p.cfg.SampleRate), p.cfg.BufferFrames, p.process)
		if err != nil {
			return vorerr.Wrap(err, "failed to open output stream").WithCode(vorerr.CodeAudioInit)
		}
		if err := stream.Start(); err != nil {
			stream.Close()
			return vorerr.Wrap(err, "failed to start output stream").WithCode(vorerr.CodeAudioInit)
		}
		p.stream = stream
	}

	p.q.play()
	return nil
}

// Pause silences output and keeps the position
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.q.pause()
	return nil
}

// Seek moves within the current clip
func (p *Player) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.q.current() == nil {
		return vorerr.New("nothing to seek in").WithCode(vorerr.CodeInvalidOperation)
	}
	p.q.seek(pos)
	return nil
}

// Position returns the offset within the current clip
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.q.position()
}

// Duration returns the length of the current clip
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.q.duration()
}

// Playing reports whether audio is being output
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.q.playing
}

// Delete closes the output stream and empties the queue
func (p *Player) Delete() error {
	p.mu.Lock()
	stream := p.stream
	p.stream = nil
	p.q.reset()
	p.epoch++
	p.mu.Unlock()

	if stream == nil {
		return nil
	}

	// Stop waits for the callback, which takes p.mu.
	var firstErr error
	if err := stream.Stop(); err != nil {
		firstErr = err
	}
	if err := stream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return vorerr.Wrap(firstErr, "failed to close output stream").WithCode(vorerr.CodeAudioInit)
	}
	return nil
}

// Close releases the stream and terminates PortAudio
func (p *Player) Close() error {
	var err error
	p.once.Do(func() {
		if derr := p.Delete(); derr != nil {
			p.logger.Warn("Stream close failed", "error", derr)
		}
		close(p.ended)
		if terr := portaudio.Terminate(); terr != nil {
			err = vorerr.Wrap(terr, "failed to terminate PortAudio").WithCode(vorerr.CodeAudioInit)
		}
	})
	return err
}

// process is the PortAudio output callback
func (p *Player) process(out []float32) {
	p.mu.Lock()
	ended := p.q.fill(out)
	epoch := p.epoch
	p.mu.Unlock()

	for _, idx := range ended {
		select {
		case p.ended <- End{Epoch: epoch, Index: idx}:
		default:
			p.logger.Warn("Dropped end notification", "index", idx)
		}
	}
}
