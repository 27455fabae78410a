// Package main is leadctl, the FitAI admin CLI for schema migrations and
// lead inspection.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/jkindrix/fitai/internal/config"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(config.Load).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
