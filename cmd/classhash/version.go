package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yacobolo/classhash/internal/registry"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/classhash
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of classhash",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "classhash %s (hashes: %s)\n", version, strings.Join(registry.Hashes(), ", "))
	},
}
