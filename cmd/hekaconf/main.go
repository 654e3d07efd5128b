package main

import (
	"os"

	"github.com/obsidianstack/hekaconf/internal/cli"
)

func main() {
	if err := cli.New().Execute(); err != nil {
		os.Exit(1)
	}
}
