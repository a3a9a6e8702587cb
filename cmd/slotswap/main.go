package main

import (
	"os"

	"slotswap/cmd/slotswap/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
