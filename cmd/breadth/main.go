package main

import (
	"os"

	"github.com/wonny/breadthcore/cmd/breadth/commands"
)

// main is the entry point for the breadth CLI: go run ./cmd/breadth [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
