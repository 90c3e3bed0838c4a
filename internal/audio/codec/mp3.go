package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/hajimehoshi/go-mp3"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

// DecodeMP3 decodes MP3 data and mixes it down to mono.
// go-mp3 always yields 16-bit little-endian stereo.
func DecodeMP3(data []byte) (*Clip, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, vorerr.Wrap(err, "failed to open MP3 stream").WithCode(vorerr.CodeAudioFormat)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, vorerr.Wrap(err, "failed to decode MP3 stream").WithCode(vorerr.CodeAudioFormat)
	}

	frames := len(pcm) / 4
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		samples[i] = (float32(l) + float32(r)) / 2 / 32768
	}

	return &Clip{Samples: samples, SampleRate: dec.SampleRate()}, nil
}

// ConcatMP3 appends MP3 streams; ID3v2 tags of all but the first are dropped
func ConcatMP3(w io.Writer, streams ...[]byte) error {
	for i, s := range streams {
		if i > 0 {
			s = stripID3v2(s)
		}
		if _, err := w.Write(s); err != nil {
			return vorerr.Wrap(err, "failed to write MP3 data").WithCode(vorerr.CodeInternal)
		}
	}
	return nil
}

// stripID3v2 removes a leading ID3v2 tag; its size is a 28-bit syncsafe integer
func stripID3v2(data []byte) []byte {
	if len(data) < 10 || string(data[0:3]) != "ID3" {
		return data
	}
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	end := 10 + size
	if data[5]&0x10 != 0 {
		end += 10 // footer
	}
	if end > len(data) {
		return nil
	}
	return data[end:]
}
