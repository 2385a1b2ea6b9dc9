// Package main is the entry point for the colbridge CLI binary.
package main

import (
	"log"
	"os"

	"colbridge/internal/config"
	cli "colbridge/pkg/cli"
)

func main() {
	// Load .env file (if present)
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}
	os.Exit(cli.Execute())
}
