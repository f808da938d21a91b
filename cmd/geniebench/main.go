package main

import (
	"os"

	"github.com/FairForge/geniebench/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
