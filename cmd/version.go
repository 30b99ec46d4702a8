package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kamusis/mbed-cli/internal/manifest"
)

// Set via -ldflags at release build time.
var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show mbed version and build information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("mbed %s", version)
		if commit != "" {
			fmt.Printf(" (%s)", commit)
		}
		fmt.Println()
		if buildDate != "" {
			fmt.Printf("  built:    %s\n", buildDate)
		}
		fmt.Printf("  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Printf("  manifest: schema v%d\n", manifest.SchemaVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
