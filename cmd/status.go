package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamusis/mbed-cli/internal/index"
)

var statusCmd = &cobra.Command{
	Use:   "status [dir]",
	Short: "Show pending index changes for a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, args []string) error {
	root, _, err := resolveDir(args)
	if err != nil {
		return err
	}

	changes, err := index.Status(root)
	if err != nil {
		return err
	}

	if changes.Empty() {
		fmt.Println("No changes detected. Index is up to date.")
		return nil
	}

	fmt.Println("File changes detected:")
	fmt.Printf("  Added:    %d file(s)\n", len(changes.Added))
	fmt.Printf("  Modified: %d file(s)\n", len(changes.Modified))
	fmt.Printf("  Deleted:  %d file(s)\n", len(changes.Deleted))
	fmt.Println("\nRun 'mbed update' to apply changes.")
	return nil
}
