package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	regionocr "github.com/menta2k/region-ocr"
)

// Set with -ldflags "-X main.gitCommit=..."
var gitCommit = "unknown"

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{"skipConfig": "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "region-ocr %s\n", regionocr.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "  Go:     %s\n", runtime.Version())
		fmt.Fprintf(cmd.OutOrStdout(), "  Commit: %s\n", gitCommit)
		fmt.Fprintf(cmd.OutOrStdout(), "  Engine: %s\n", engineSupport)
	},
}
