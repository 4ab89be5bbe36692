// Package main provides the entry point for the Sage CLI.
package main

import (
	"fmt"
	"os"

	"github.com/sagelabs/sage/cmd/sage/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
