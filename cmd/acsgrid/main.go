// Package main provides the CLI for the acsgrid data acquisition service.
package main

import (
	"fmt"
	"os"

	"github.com/censusops/acsgrid/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
