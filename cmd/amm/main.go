// Package main is the entry point for the amm application.
package main

import (
	"os"

	"github.com/jmylchreest/amm-core/cmd/amm/cmd"
)

func main() {
	err := cmd.Execute()
	if code := cmd.ExitCode(err); code != 0 {
		os.Exit(code)
	}
}
