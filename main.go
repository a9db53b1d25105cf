// Package main is the entry point for glucoshare
package main

import (
	"os"

	"github.com/mrcode/glucoshare/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
