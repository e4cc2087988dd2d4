// Package main is the entry point for the calcprobe application.
package main

import (
	"os"

	"github.com/jmylchreest/calcprobe/cmd/calcprobe/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
