package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/msto63/vorleser/internal/tts"
	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:   "voices [suche]",
	Short: "Listet die verfügbaren Stimmen",
	Long: `Listet die Stimmen der konfigurierten Engine.

Beispiele:
  vorleser voices
  vorleser voices de-DE
  vorleser voices katja`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVoices,
}

func init() {
	rootCmd.AddCommand(voicesCmd)
}

func runVoices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("Konfiguration konnte nicht geladen werden", err)
		return err
	}

	synth, err := newSynthesizer(cfg)
	if err != nil {
		printError("TTS-Engine konnte nicht erstellt werden", err)
		return err
	}
	defer synth.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	voices, err := synth.Voices(ctx)
	if err != nil {
		printError("Stimmen konnten nicht geladen werden", err)
		return err
	}

	catalog := tts.NewCatalog(voices)
	list := catalog.Voices()
	if len(args) == 1 {
		list = catalog.Filter(args[0])
	}

	fmt.Printf("%-36s %-8s %-8s %s\n", "KURZNAME", "SPRACHE", "STIMME", "NAME")
	for _, v := range list {
		fmt.Printf("%-36s %-8s %-8s %s\n", v.ShortName, v.Locale, v.Gender, v.DisplayName())
	}
	fmt.Printf("Gesamt: %d Stimme(n)\n", len(list))
	return nil
}
