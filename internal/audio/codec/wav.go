package codec

import (
	"bytes"
	"errors"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

// DecodeWAV decodes PCM WAV data and mixes it down to mono
func DecodeWAV(data []byte) (*Clip, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, vorerr.New("not a valid WAVE file").WithCode(vorerr.CodeAudioFormat)
	}
	if dec.WavAudioFormat != 1 {
		return nil, vorerr.Newf("unsupported WAV encoding %d", dec.WavAudioFormat).WithCode(vorerr.CodeAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, vorerr.Wrap(err, "failed to read WAV samples").WithCode(vorerr.CodeAudioFormat)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	scale := float32(math.Pow(2, float64(dec.BitDepth)-1))
	if scale < 1 {
		scale = 32768
	}

	var ints []int
	if buf != nil {
		ints = buf.Data
	}

	samples := make([]float32, len(ints)/channels)
	for i := range samples {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(ints[i*channels+ch])
		}
		samples[i] = sum / float32(channels) / scale
	}

	return &Clip{Samples: samples, SampleRate: int(dec.SampleRate)}, nil
}

// WriteWAV writes the clips back to back as one 16-bit mono WAV file.
// Clips are resampled to rate first.
func WriteWAV(w io.WriteSeeker, rate int, clips ...*Clip) error {
	enc := wav.NewEncoder(w, rate, 16, 1, 1)

	for _, c := range clips {
		c = Resample(c, rate)
		if c.Frames() == 0 {
			continue
		}
		buf := &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
			Data:           toInt16(c.Samples),
			SourceBitDepth: 16,
		}
		if err := enc.Write(buf); err != nil {
			return vorerr.Wrap(err, "failed to write WAV samples").WithCode(vorerr.CodeInternal)
		}
	}

	if err := enc.Close(); err != nil {
		return vorerr.Wrap(err, "failed to finish WAV file").WithCode(vorerr.CodeInternal)
	}
	return nil
}

// EncodeWAV returns the clips encoded as an in-memory WAV file
func EncodeWAV(rate int, clips ...*Clip) ([]byte, error) {
	var f memFile
	if err := WriteWAV(&f, rate, clips...); err != nil {
		return nil, err
	}
	return f.buf, nil
}

func toInt16(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		out[i] = int(s * 32767)
	}
	return out
}

// memFile is an in-memory io.WriteSeeker for the WAV encoder
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(m.pos) + offset
	case io.SeekEnd:
		pos = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if pos < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = int(pos)
	return pos, nil
}
