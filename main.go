// Package main is the entry point of the u2ctl control plane.
package main

import (
	"fmt"
	"os"

	"github.com/0xastro/uhd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
