package main

import (
	"os"

	"github.com/effective-security/gptbridge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
