package main

import (
	"os"

	"github.com/wonny/agrimet/cmd/agrimet/commands"
)

// main is the entry point for the agrimet CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/agrimet [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
