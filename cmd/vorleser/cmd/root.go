// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     cmd
// Description: Command line entry points
// Author:      Mike Stoffels
// Created:     2026-09-27
// License:     MIT
// ============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/msto63/vorleser/internal/history"
	"github.com/msto63/vorleser/internal/tts"
	"github.com/msto63/vorleser/pkg/core/config"
	"github.com/msto63/vorleser/pkg/core/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	offline bool
)

var rootCmd = &cobra.Command{
	Use:   "vorleser",
	Short: "Vorleser - Text vorlesen lassen",
	Long: `Vorleser wandelt Text in Sprache um und spielt ihn ab.

Lange Texte werden in Abschnitte zerlegt und nacheinander erzeugt.
Die Wiedergabe beginnt bereits, während weitere Abschnitte entstehen.

Ohne Unterkommando startet die Terminal-Oberfläche.

Engines:
  edge   - Online-Vorlesedienst (Standard)
  piper  - Lokales Piper-Binary
  mock   - Offline-Testtöne`,
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config-Datei (default: ./vorleser.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose Output")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Offline-Engine (Testtöne) verwenden")
}

// loadConfig reads --config or the default locations and applies the
// global flags
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if offline {
		cfg.TTS.Engine = "mock"
	}
	if verbose {
		cfg.General.LogLevel = "debug"
	}
	logging.Configure(logging.Config{Level: cfg.General.LogLevel})
	return cfg, nil
}

// newSynthesizer creates the configured engine
func newSynthesizer(cfg *config.Config) (tts.Synthesizer, error) {
	return tts.New(cfg.TTS)
}

// openHistory opens the history store, or returns nil when it is disabled
// or cannot be opened
func openHistory(cfg *config.Config) *history.Store {
	if !cfg.History.IsEnabled() {
		return nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logging.New("cli").Warn("History disabled", "path", cfg.History.Path, "error", err)
		return nil
	}
	return store
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Fehler: %s: %v\n", msg, err)
}
