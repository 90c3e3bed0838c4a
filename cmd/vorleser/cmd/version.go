package cmd

import (
	"fmt"

	"github.com/msto63/vorleser/pkg/core/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Zeigt die Version an",
	Run: func(cmd *cobra.Command, args []string) {
		for _, line := range version.Lines() {
			fmt.Println(line)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
