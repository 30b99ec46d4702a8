package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamusis/mbed-cli/internal/index"
)

var searchCmd = &cobra.Command{
	Use:   "search [dir] <query>",
	Short: "Search an indexed directory by similarity",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var flagSearchTopK int

func init() {
	searchCmd.Flags().IntVar(&flagSearchTopK, "top-k", 0, "Number of results (default: index setting)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	root, rest, err := resolveDir(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("no query given")
	}
	query := strings.Join(rest, " ")

	prov, err := newProvider("")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	results, err := index.Search(ctx, root, query, flagSearchTopK, prov, newLogger())
	if err != nil {
		return err
	}

	fmt.Printf("\nmbed search %q\n\n", query)
	fmt.Printf("Results (%d found):\n", len(results))
	if len(results) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, r := range results {
		fmt.Fprintf(w, "  %d.\t[%.3f]\t%s\n", i+1, r.Score, displayPath(root, r.Path))
	}
	return w.Flush()
}

// displayPath shortens an absolute result path to be relative to the
// searched root when possible.
func displayPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
