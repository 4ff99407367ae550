// Package main provides the entry point for the wirebus CLI.
package main

import (
	"os"

	"github.com/wirebus/wirebus/cmd/wirebus/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
