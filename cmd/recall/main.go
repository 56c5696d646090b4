package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sakhedingi/recall/internal/adapters/driving/cli"
)

func main() {
	// A .env in the working directory is a convenience for local use;
	// its absence is not an error.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
