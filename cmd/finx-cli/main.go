package main

import (
	"os"

	"finx/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := cli.NewRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
