// Package main provides the entry point for the eqwald CLI tool.
package main

import (
	"os"

	"github.com/Sumatoshi-tech/eqwald/cmd/eqwald/commands"
)

func main() {
	os.Exit(commands.Execute())
}
