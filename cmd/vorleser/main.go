package main

import (
	"os"

	"github.com/msto63/vorleser/cmd/vorleser/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
