package main

import (
	"os"

	"github.com/majorcontext/codexrelay/cmd/codexrelay/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
