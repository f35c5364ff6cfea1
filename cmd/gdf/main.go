// Package main implements the go-dataflow CLI (gdf).
package main

import (
	"os"

	"github.com/l3aro/go-dataflow/cmd/gdf/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.Version = version
	commands.BuildTime = buildTime
	commands.RootCmd.Version = version
	commands.RootCmd.SetVersionTemplate("gdf version {{.Version}}\n")

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
