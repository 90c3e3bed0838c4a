package cmd

import (
	"os"

	"github.com/msto63/vorleser/internal/audio"
	"github.com/msto63/vorleser/internal/session"
	"github.com/msto63/vorleser/internal/subtitle"
	"github.com/msto63/vorleser/internal/tui"
	"github.com/msto63/vorleser/pkg/core/logging"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [datei]",
	Short: "Startet die interaktive TUI",
	Long: `Startet die Terminal-Oberfläche von Vorleser.

Eine optional angegebene Text- oder SRT-Datei wird direkt geladen.

Navigation:
  Tab       - Bereich wechseln (Text, Stimmen, Steuerung)
  Ctrl+G    - Sprache erzeugen
  Ctrl+P    - Wiedergabe / Pause
  Ctrl+O    - Datei laden
  Ctrl+S    - Audio speichern
  Ctrl+C    - Beenden`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("Konfiguration konnte nicht geladen werden", err)
		return err
	}

	// The UI owns the terminal; logs go to the log file.
	closeLog, err := logging.OpenFile(cfg.General.LogFile, cfg.General.LogLevel)
	if err == nil {
		defer closeLog()
	}
	logger := logging.New("cli")

	var text string
	if len(args) == 1 {
		loaded, err := subtitle.LoadText(args[0])
		if err != nil {
			printError("Datei konnte nicht gelesen werden", err)
			return err
		}
		text = loaded.Text
	}

	synth, err := newSynthesizer(cfg)
	if err != nil {
		printError("TTS-Engine konnte nicht erstellt werden", err)
		return err
	}
	defer synth.Close()

	uiCfg := tui.Config{
		Synthesizer: synth,
		TempDir:     os.TempDir(),
		Playback: session.ControllerConfig{
			DeleteRetries: cfg.Playback.DeleteRetries,
			DeleteBackoff: cfg.Playback.DeleteBackoff.Duration,
		},
		SeekInterval: cfg.Playback.SeekInterval.Duration,
		SettingsPath: cfg.Settings.UIStatePath,
		Text:         text,
		Engine:       cfg.TTS.Engine,
	}

	player, err := audio.Open(audio.Config{
		SampleRate:   cfg.Playback.SampleRate,
		BufferFrames: cfg.Playback.BufferFrames,
	})
	if err != nil {
		logger.Error("Audio output unavailable", "error", err)
		uiCfg.AudioErr = err
	} else {
		defer player.Close()
		uiCfg.Player = player
		uiCfg.Ended = forwardEnds(player.Ended())
	}

	if store := openHistory(cfg); store != nil {
		defer store.Close()
		uiCfg.Recorder = store
	}

	logger.Info("Starting UI", "engine", cfg.TTS.Engine)
	if err := tui.Run(uiCfg); err != nil {
		printError("TUI Fehler", err)
		return err
	}
	return nil
}

// forwardEnds converts player notifications for the session layer until the
// player is closed
func forwardEnds(in <-chan audio.End) <-chan session.SegmentEnd {
	out := make(chan session.SegmentEnd, cap(in))
	go func() {
		defer close(out)
		for e := range in {
			out <- session.SegmentEnd{Epoch: e.Epoch, Index: e.Index}
		}
	}()
	return out
}
