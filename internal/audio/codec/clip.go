// Package codec decodes synthesized audio into mono float32 clips and
// encodes clips as WAV.
package codec

import (
	"bytes"
	"time"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

// Clip is decoded mono audio
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Frames returns the number of sample frames
func (c *Clip) Frames() int {
	if c == nil {
		return 0
	}
	return len(c.Samples)
}

// Duration returns the playing time of the clip
func (c *Clip) Duration() time.Duration {
	return FramesToDuration(c.Frames(), c.rate())
}

func (c *Clip) rate() int {
	if c == nil {
		return 0
	}
	return c.SampleRate
}

// FramesToDuration converts a frame count at rate to a duration
func FramesToDuration(frames, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(int64(frames) * int64(time.Second) / int64(rate))
}

// DurationToFrames converts d to a frame count at rate
func DurationToFrames(d time.Duration, rate int) int {
	return int(int64(d) * int64(rate) / int64(time.Second))
}

// Decode detects WAV or MP3 data and decodes it
func Decode(data []byte) (*Clip, error) {
	switch {
	case len(data) == 0:
		return nil, vorerr.New("empty audio data").WithCode(vorerr.CodeAudioFormat)
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return DecodeWAV(data)
	case isMP3(data):
		return DecodeMP3(data)
	default:
		return nil, vorerr.New("unrecognized audio format").WithCode(vorerr.CodeAudioFormat)
	}
}

// isMP3 checks for an ID3 tag or an MPEG frame sync
func isMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// Resample converts the clip to rate using linear interpolation
func Resample(c *Clip, rate int) *Clip {
	if c == nil || rate <= 0 || c.SampleRate == rate || len(c.Samples) == 0 {
		return c
	}

	n := int(int64(len(c.Samples)) * int64(rate) / int64(c.SampleRate))
	out := make([]float32, n)
	step := float64(c.SampleRate) / float64(rate)
	last := len(c.Samples) - 1

	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = c.Samples[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = c.Samples[j]*(1-frac) + c.Samples[j+1]*frac
	}
	return &Clip{Samples: out, SampleRate: rate}
}
