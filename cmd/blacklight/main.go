package main

import (
	"os"

	"github.com/illenko/blacklight/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
