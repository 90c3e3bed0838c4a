// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     tts
// Description: Piper TTS engine
// Author:      Mike Stoffels
// Created:     2026-09-22
// License:     MIT
// ============================================================================

package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
	"github.com/msto63/vorleser/pkg/core/logging"
)

// PiperConfig holds the local piper settings
type PiperConfig struct {
	// Command is the piper command line, e.g. "/opt/piper/piper --noise_scale 0.6"
	Command string

	// ModelsDir holds the .onnx voice models and their .onnx.json configs
	ModelsDir string

	SampleRate int
}

// Piper implements text-to-speech using a local piper binary
type Piper struct {
	command    []string
	modelsDir  string
	espeakData string
	sampleRate int
	logger     *logging.Logger
}

// NewPiper creates a new Piper engine
func NewPiper(cfg PiperConfig) (*Piper, error) {
	args, err := shellwords.NewParser().Parse(cfg.Command)
	if err != nil {
		return nil, vorerr.Wrap(err, "failed to parse piper command").WithCode(vorerr.CodeConfigError)
	}
	if len(args) == 0 {
		return nil, vorerr.New("piper command is empty").WithCode(vorerr.CodeConfigError)
	}

	// espeak-ng-data next to the binary is used when present
	espeakData := filepath.Join(filepath.Dir(args[0]), "espeak-ng-data")
	if _, err := os.Stat(espeakData); err != nil {
		espeakData = ""
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 22050
	}

	return &Piper{
		command:    args,
		modelsDir:  cfg.ModelsDir,
		espeakData: espeakData,
		sampleRate: sampleRate,
		logger:     logging.New("tts-piper"),
	}, nil
}

// Format returns FormatWAV
func (p *Piper) Format() Format {
	return FormatWAV
}

// SampleRate returns the model sample rate
func (p *Piper) SampleRate() int {
	return p.sampleRate
}

// Close releases resources
func (p *Piper) Close() error {
	return nil
}

// Synthesize runs piper for one request and returns the WAV file contents
func (p *Piper) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, vorerr.Wrap(ErrNoAudio, "piper synthesis").WithCode(vorerr.CodeNoAudio)
	}

	model, err := p.modelPath(req.Voice)
	if err != nil {
		return nil, err
	}

	out, err := os.CreateTemp("", "vorleser_piper_*.wav")
	if err != nil {
		return nil, vorerr.Wrap(err, "failed to create piper output file").WithCode(vorerr.CodeInternal)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	args := append([]string{}, p.command[1:]...)
	args = append(args,
		"--model", model,
		"--output_file", outPath,
		"--length_scale", lengthScale(req.Rate),
	)
	if cfgPath := model + ".json"; fileExists(cfgPath) {
		args = append(args, "--config", cfgPath)
	}
	if p.espeakData != "" {
		args = append(args, "--espeak_data", p.espeakData)
	}
	if req.Pitch != 0 {
		p.logger.Debug("Pitch adjustment not supported by piper", "pitch", req.Pitch)
	}

	cmd := exec.CommandContext(ctx, p.command[0], args...)
	cmd.Stdin = strings.NewReader(text)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if dir := filepath.Dir(p.command[0]); dir != "." {
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), fmt.Sprintf("DYLD_LIBRARY_PATH=%s", dir))
	}

	if err := cmd.Run(); err != nil {
		return nil, vorerr.Wrap(err, "piper failed").
			WithCode(vorerr.CodeSynthesisFailed).
			WithDetail("stderr", strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, vorerr.Wrap(err, "failed to read piper output").WithCode(vorerr.CodeSynthesisFailed)
	}
	if len(data) == 0 {
		return nil, vorerr.Wrap(ErrNoAudio, "piper synthesis").WithCode(vorerr.CodeNoAudio)
	}
	return data, nil
}

// modelPath resolves a voice id to a model file
func (p *Piper) modelPath(voice string) (string, error) {
	if voice == "" {
		return "", vorerr.New("no piper voice selected").WithCode(vorerr.CodeInvalidInput)
	}
	path := voice
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.modelsDir, voice)
	}
	if !strings.HasSuffix(path, ".onnx") {
		path += ".onnx"
	}
	if !fileExists(path) {
		return "", vorerr.Newf("model file not found: %s", path).WithCode(vorerr.CodeNotFound)
	}
	return path, nil
}

// Voices lists the .onnx models in the models directory
func (p *Piper) Voices(ctx context.Context) ([]Voice, error) {
	entries, err := os.ReadDir(p.modelsDir)
	if err != nil {
		return nil, vorerr.Wrap(err, "failed to read voices directory").WithCode(vorerr.CodeVoiceCatalog)
	}

	var voices []Voice
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".onnx") {
			continue
		}
		voices = append(voices, piperVoice(strings.TrimSuffix(entry.Name(), ".onnx")))
	}

	SortVoices(voices)
	return voices, nil
}

// piperVoice derives a Voice from a model name like "de_DE-thorsten-high"
func piperVoice(name string) Voice {
	v := Voice{Name: name, ShortName: name, FriendlyName: name}
	if lang, rest, ok := strings.Cut(name, "-"); ok {
		v.Locale = strings.ReplaceAll(lang, "_", "-")
		v.FriendlyName = rest
	}
	return v
}

// lengthScale maps a rate adjustment in percent to piper's length scale.
// +100% halves the duration; rates below -90% are clamped.
func lengthScale(rate int) string {
	if rate < -90 {
		rate = -90
	}
	return strconv.FormatFloat(100/float64(100+rate), 'f', 3, 64)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
