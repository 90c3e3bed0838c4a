package cmd

import (
	"fmt"

	"github.com/msto63/vorleser/internal/history"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Zeigt die zuletzt erzeugten Texte",
	Long: `Zeigt die zuletzt erzeugten Sprachausgaben mit Stimme, Umfang und
Speicherort.

Beispiele:
  vorleser history
  vorleser history -n 50`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Anzahl der Einträge")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("Konfiguration konnte nicht geladen werden", err)
		return err
	}
	if !cfg.History.IsEnabled() {
		fmt.Println("Verlauf ist deaktiviert.")
		return nil
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		printError("Verlauf konnte nicht geöffnet werden", err)
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		printError("Verlauf konnte nicht gelesen werden", err)
		return err
	}

	fmt.Printf("%-17s %-10s %6s %6s  %s\n", "ZEIT", "SITZUNG", "TEILE", "WÖRTER", "TEXT")
	for _, g := range entries {
		fmt.Printf("%-17s %-10s %6d %6d  %s\n",
			g.CreatedAt.Local().Format("2006-01-02 15:04"), g.SessionID, g.Chunks, g.Words, g.Preview)
		fmt.Printf("%-17s %s\n", "", g.Voice)
		if g.SavedPath != "" {
			fmt.Printf("%-17s → %s\n", "", g.SavedPath)
		}
	}
	fmt.Printf("Gesamt: %d Eintrag/Einträge\n", len(entries))
	return nil
}
