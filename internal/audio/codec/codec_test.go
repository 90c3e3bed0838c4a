package codec

import (
	"bytes"
	"math"
	"testing"
	"time"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

func tone(rate int, d time.Duration) *Clip {
	n := DurationToFrames(d, rate)
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
	}
	return &Clip{Samples: s, SampleRate: rate}
}

func TestEncodeDecodeWAV(t *testing.T) {
	in := tone(24000, 250*time.Millisecond)

	data, err := EncodeWAV(24000, in)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("EncodeWAV() header = %q", data[0:12])
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.SampleRate != 24000 {
		t.Errorf("SampleRate = %d, want 24000", out.SampleRate)
	}
	if out.Frames() != in.Frames() {
		t.Fatalf("Frames() = %d, want %d", out.Frames(), in.Frames())
	}
	if out.Duration() != 250*time.Millisecond {
		t.Errorf("Duration() = %v, want 250ms", out.Duration())
	}
	for i := range in.Samples {
		if d := math.Abs(float64(in.Samples[i] - out.Samples[i])); d > 0.001 {
			t.Fatalf("sample %d differs by %v", i, d)
		}
	}
}

func TestEncodeWAV_ConcatenatesAndResamples(t *testing.T) {
	a := tone(24000, 100*time.Millisecond)
	b := tone(12000, 100*time.Millisecond)

	data, err := EncodeWAV(24000, a, b)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	out, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if out.Duration() != 200*time.Millisecond {
		t.Errorf("Duration() = %v, want 200ms", out.Duration())
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("hello world")},
		{"truncated riff", []byte("RIFF\x00\x00\x00\x00WAVE")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if err == nil {
				t.Fatal("Decode() expected error")
			}
			if !vorerr.HasCode(err, vorerr.CodeAudioFormat) {
				t.Errorf("code = %v, want AUDIO_FORMAT", vorerr.GetCode(err))
			}
		})
	}
}

func TestResample(t *testing.T) {
	in := &Clip{Samples: []float32{0, 1, 0, -1}, SampleRate: 4}

	up := Resample(in, 8)
	if up.SampleRate != 8 || up.Frames() != 8 {
		t.Fatalf("Resample() = %d frames at %d Hz", up.Frames(), up.SampleRate)
	}
	if up.Samples[1] != 0.5 {
		t.Errorf("interpolated sample = %v, want 0.5", up.Samples[1])
	}
	if same := Resample(in, 4); same != in {
		t.Error("Resample() to the same rate should return the input")
	}
	if Resample(nil, 8) != nil {
		t.Error("Resample(nil) should be nil")
	}
}

func TestClip_ZeroDuration(t *testing.T) {
	var c *Clip
	if c.Duration() != 0 {
		t.Error("nil clip should have zero duration")
	}
	if (&Clip{SampleRate: 24000}).Duration() != 0 {
		t.Error("empty clip should have zero duration")
	}
}

func TestConcatMP3_StripsLaterTags(t *testing.T) {
	frame := []byte{0xFF, 0xF3, 0x01, 0x02}
	tagged := append([]byte("ID3\x04\x00\x00\x00\x00\x00\x02AB"), frame...)

	var buf bytes.Buffer
	if err := ConcatMP3(&buf, tagged, tagged); err != nil {
		t.Fatalf("ConcatMP3() error = %v", err)
	}
	want := append(append([]byte{}, tagged...), frame...)
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("ConcatMP3() = %x, want %x", buf.Bytes(), want)
	}
}
