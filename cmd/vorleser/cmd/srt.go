package cmd

import (
	"fmt"

	"github.com/msto63/vorleser/internal/subtitle"
	"github.com/spf13/cobra"
)

var srtCmd = &cobra.Command{
	Use:   "srt <datei>",
	Short: "Gibt den Dialogtext einer SRT-Datei aus",
	Long: `Entfernt Nummern, Zeitstempel und Formatierung aus einer SRT-Datei
und gibt den reinen Dialogtext aus.

Beispiele:
  vorleser srt film.srt
  vorleser srt film.srt > film.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := subtitle.ExtractFile(args[0])
		if err != nil {
			printError("Untertitel konnten nicht gelesen werden", err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(srtCmd)
}
