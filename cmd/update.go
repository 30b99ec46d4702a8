package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamusis/mbed-cli/internal/index"
	"github.com/kamusis/mbed-cli/internal/tracker"
)

var updateCmd = &cobra.Command{
	Use:   "update [dir]",
	Short: "Apply filesystem changes to the index",
	Long: `Detect files added, modified, or deleted since the last index update and
apply them to the vector store. Asks for confirmation unless -y is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

var flagUpdateYes bool

func init() {
	updateCmd.Flags().BoolVarP(&flagUpdateYes, "yes", "y", false, "Apply without confirmation")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
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

	printSection("Detected changes")
	printChangeBucket("Added", changes.Added)
	printChangeBucket("Modified", changes.Modified)
	printChangeBucket("Deleted", changes.Deleted)

	if !flagUpdateYes && !confirm("Apply these changes?") {
		fmt.Println("Aborted.")
		return nil
	}

	prov, err := newProvider("")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	res, err := index.Synchronize(ctx, root, changes, prov, newLogger())
	if err != nil {
		return err
	}

	fmt.Println()
	printOK("", fmt.Sprintf("%d file(s) processed, %d removed", res.Processed, res.Removed))
	if len(res.Errors) > 0 {
		printWarn("", fmt.Sprintf("%d file(s) failed:", len(res.Errors)))
		for _, fe := range res.Errors {
			printErr(fe.Path, fe.Message)
		}
	}
	return nil
}

// printChangeBucket prints up to 5 entries of one change bucket, with a
// "... and N more" tail beyond that.
func printChangeBucket(label string, changes []tracker.Change) {
	if len(changes) == 0 {
		return
	}
	fmt.Printf("  %s: %d file(s)\n", label, len(changes))
	for i, c := range changes {
		if i == 5 {
			fmt.Printf("    ... and %d more\n", len(changes)-5)
			break
		}
		fmt.Printf("    %s %s\n", bucketMark(label), c.Rel)
	}
}

func bucketMark(label string) string {
	switch label {
	case "Added":
		return "+"
	case "Deleted":
		return "-"
	default:
		return "~"
	}
}

// confirm asks a yes/no question on stdin, defaulting to no.
func confirm(prompt string) bool {
	fmt.Printf("\n%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
