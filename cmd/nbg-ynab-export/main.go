package main

import (
	"os"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
