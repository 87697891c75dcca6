// Package main is the entry point for lunaticplugd, the wasm plugin
// registry and dispatcher daemon.
package main

import (
	"os"

	"github.com/lunatic-run/plugin/internal/adapters/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
