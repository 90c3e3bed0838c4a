// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     settings
// Description: Persistence of the UI state between runs
// Author:      Mike Stoffels
// Created:     2026-09-25
// License:     MIT
// ============================================================================

package settings

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/msto63/vorleser/internal/chunking"
	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

const (
	MinRate  = -100
	MaxRate  = 100
	MinPitch = -50
	MaxPitch = 50
)

// UIState holds the persistent UI settings
type UIState struct {
	Rate         int     `json:"rate"`
	Pitch        int     `json:"pitch"`
	Voice        *string `json:"voice"`
	Dark         bool    `json:"dark"`
	AutoPlay     bool    `json:"auto_play"`
	Split        bool    `json:"split"`
	WordsInChunk int     `json:"words_in_chunk"`
	ChunkRegex   string  `json:"chunk_regex"`
}

// Default returns the settings used when nothing is stored
func Default() UIState {
	return UIState{
		Dark:         true,
		AutoPlay:     true,
		Split:        true,
		WordsInChunk: chunking.DefaultMinWords,
		ChunkRegex:   chunking.DefaultBoundary,
	}
}

// VoiceName returns the stored voice or ""
func (s UIState) VoiceName() string {
	if s.Voice == nil {
		return ""
	}
	return *s.Voice
}

// IsPlaceholderVoice reports whether label is a voice list placeholder
// rather than a real voice
func IsPlaceholderVoice(label string) bool {
	label = strings.TrimSpace(label)
	return label == "" ||
		label == "Select Voice" ||
		label == "Stimme wählen" ||
		label == "No voices found" ||
		label == "Keine Stimmen gefunden" ||
		strings.Contains(label, "Loading") ||
		strings.Contains(label, "Lade") ||
		strings.Contains(label, "No match") ||
		strings.Contains(label, "Kein Treffer")
}

// Load reads the settings at path. A missing file yields the defaults.
// Fields are decoded one by one; invalid values keep their default and the
// remaining fields are still applied. A broken document returns the
// defaults together with the parse error.
func Load(path string) (UIState, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, vorerr.Wrap(err, "failed to read UI state").WithCode(vorerr.CodeConfigError)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return s, vorerr.Wrap(err, "failed to parse UI state").
			WithCode(vorerr.CodeConfigError).
			WithDetail("path", path)
	}

	if n, ok := decodeInt(fields, "rate"); ok && n >= MinRate && n <= MaxRate {
		s.Rate = n
	}
	if n, ok := decodeInt(fields, "pitch"); ok && n >= MinPitch && n <= MaxPitch {
		s.Pitch = n
	}
	if n, ok := decodeInt(fields, "words_in_chunk"); ok && n > 0 {
		s.WordsInChunk = n
	}

	var voice *string
	if decode(fields, "voice", &voice) && voice != nil && !IsPlaceholderVoice(*voice) {
		s.Voice = voice
	}

	if b, ok := decodeBool(fields, "dark"); ok {
		s.Dark = b
	}
	if b, ok := decodeBool(fields, "auto_play"); ok {
		s.AutoPlay = b
	}
	if b, ok := decodeBool(fields, "split"); ok {
		s.Split = b
	}

	var re string
	if decode(fields, "chunk_regex", &re) && re != "" && chunking.ValidBoundary(re) {
		s.ChunkRegex = re
	}

	return s, nil
}

// decode unmarshals fields[key] into v and reports success
func decode(fields map[string]json.RawMessage, key string, v interface{}) bool {
	raw, ok := fields[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// decodeInt reads a JSON number, truncating fractions. null is not a value.
func decodeInt(fields map[string]json.RawMessage, key string) (int, bool) {
	var f *float64
	if !decode(fields, key, &f) || f == nil || math.IsNaN(*f) {
		return 0, false
	}
	if *f > math.MaxInt32 || *f < math.MinInt32 {
		return 0, false
	}
	return int(*f), true
}

// decodeBool reads a JSON boolean. null is not a value.
func decodeBool(fields map[string]json.RawMessage, key string) (bool, bool) {
	var b *bool
	if !decode(fields, key, &b) || b == nil {
		return false, false
	}
	return *b, true
}

// Normalize applies the rules used when storing: placeholder voices become
// null, an invalid chunk pattern the default, numbers are clamped.
func (s UIState) Normalize() UIState {
	if s.Voice != nil && IsPlaceholderVoice(*s.Voice) {
		s.Voice = nil
	}
	if s.ChunkRegex == "" || !chunking.ValidBoundary(s.ChunkRegex) {
		s.ChunkRegex = chunking.DefaultBoundary
	}
	if s.WordsInChunk <= 0 {
		s.WordsInChunk = chunking.DefaultMinWords
	}
	s.Rate = clamp(s.Rate, MinRate, MaxRate)
	s.Pitch = clamp(s.Pitch, MinPitch, MaxPitch)
	return s
}

// Save writes the normalized settings to path
func Save(path string, s UIState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return vorerr.Wrap(err, "failed to create settings directory").WithCode(vorerr.CodeConfigError)
	}

	data, err := json.MarshalIndent(s.Normalize(), "", "  ")
	if err != nil {
		return vorerr.Wrap(err, "failed to encode UI state").WithCode(vorerr.CodeInternal)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return vorerr.Wrap(err, "failed to write UI state").WithCode(vorerr.CodeConfigError)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
