// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     tts
// Description: Text-to-speech engine interface
// Author:      Mike Stoffels
// Created:     2026-09-22
// License:     MIT
// ============================================================================

package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/msto63/vorleser/pkg/core/config"
	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

// ErrNoAudio is returned when the engine produced no audio for a request,
// for example because the text contained nothing speakable.
var ErrNoAudio = errors.New("no audio was received")

// Synthesizer is the interface for text-to-speech engines
type Synthesizer interface {
	// Synthesize converts the request text to encoded audio
	Synthesize(ctx context.Context, req Request) ([]byte, error)

	// Voices returns the voice catalog of the engine
	Voices(ctx context.Context) ([]Voice, error)

	// Format returns the encoding of the produced audio
	Format() Format

	// Close releases resources
	Close() error
}

// Format identifies the audio container an engine produces
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

// Ext returns the file extension including the dot
func (f Format) Ext() string {
	return "." + string(f)
}

// Request holds the parameters of one synthesis call
type Request struct {
	Text  string
	Voice string

	// Rate is the speaking rate adjustment in percent (-100..100)
	Rate int

	// Pitch is the pitch adjustment in Hz (-50..50)
	Pitch int
}

// RateString returns the signed rate, e.g. "+10%"
func (r Request) RateString() string {
	return fmt.Sprintf("%+d%%", r.Rate)
}

// PitchString returns the signed pitch, e.g. "-5Hz"
func (r Request) PitchString() string {
	return fmt.Sprintf("%+dHz", r.Pitch)
}

// New creates the engine selected in cfg
func New(cfg config.TTSConfig) (Synthesizer, error) {
	switch cfg.Engine {
	case "edge", "":
		return NewEdge(EdgeConfig{
			Endpoint:     cfg.Edge.Endpoint,
			VoicesURL:    cfg.Edge.VoicesURL,
			Token:        cfg.Edge.Token,
			OutputFormat: cfg.Edge.OutputFormat,
			Timeout:      cfg.Edge.Timeout.Duration,
		}), nil
	case "piper":
		return NewPiper(PiperConfig{
			Command:    cfg.Piper.Command,
			ModelsDir:  cfg.Piper.ModelsDir,
			SampleRate: cfg.Piper.SampleRate,
		})
	case "mock":
		return NewMock(MockConfig{}), nil
	default:
		return nil, vorerr.Newf("unknown tts engine: %s", cfg.Engine).WithCode(vorerr.CodeConfigError)
	}
}
