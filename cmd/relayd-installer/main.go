// Package main is the entry point for the relayd installer.
package main

import (
	"os"

	"github.com/plexsphere/relayctl/cmd/relayd-installer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
