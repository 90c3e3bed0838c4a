package tts

import (
	"testing"

	"github.com/msto63/vorleser/pkg/core/config"
	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

func TestRequest_ParameterStrings(t *testing.T) {
	tests := []struct {
		rate, pitch int
		wantRate    string
		wantPitch   string
	}{
		{0, 0, "+0%", "+0Hz"},
		{25, -10, "+25%", "-10Hz"},
		{-100, 50, "-100%", "+50Hz"},
	}
	for _, tt := range tests {
		r := Request{Rate: tt.rate, Pitch: tt.pitch}
		if got := r.RateString(); got != tt.wantRate {
			t.Errorf("RateString(%d) = %q, want %q", tt.rate, got, tt.wantRate)
		}
		if got := r.PitchString(); got != tt.wantPitch {
			t.Errorf("PitchString(%d) = %q, want %q", tt.pitch, got, tt.wantPitch)
		}
	}
}

func TestFormat_Ext(t *testing.T) {
	if FormatMP3.Ext() != ".mp3" || FormatWAV.Ext() != ".wav" {
		t.Errorf("Ext() = %q, %q", FormatMP3.Ext(), FormatWAV.Ext())
	}
}

func TestNew(t *testing.T) {
	cfg := config.Default().TTS

	tests := []struct {
		engine  string
		want    Format
		wantErr bool
	}{
		{"edge", FormatMP3, false},
		{"mock", FormatWAV, false},
		{"piper", FormatWAV, false},
		{"espeak", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			cfg.Engine = tt.engine
			s, err := New(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !vorerr.HasCode(err, vorerr.CodeConfigError) {
					t.Errorf("code = %v, want CONFIG_ERROR", vorerr.GetCode(err))
				}
				return
			}
			defer s.Close()
			if s.Format() != tt.want {
				t.Errorf("Format() = %v, want %v", s.Format(), tt.want)
			}
		})
	}
}
