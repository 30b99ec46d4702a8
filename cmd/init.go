package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamusis/mbed-cli/internal/config"
	"github.com/kamusis/mbed-cli/internal/index"
	"github.com/kamusis/mbed-cli/internal/manifest"
	"github.com/kamusis/mbed-cli/internal/vectorstore"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Build the semantic index for a directory",
	Long: `Index every document under the directory (default: current directory).

The index lives in <dir>/.mbed/. Defaults for --model, --storage, --top-k
and --exclude come from ~/.mbed/config.yaml when the flag is omitted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	flagInitModel   string
	flagInitStorage string
	flagInitTopK    int
	flagInitExclude []string
)

func init() {
	initCmd.Flags().StringVar(&flagInitModel, "model", "", "Embedding model name")
	initCmd.Flags().StringVar(&flagInitStorage, "storage", "", "Vector storage backend (sqlite|simple)")
	initCmd.Flags().IntVar(&flagInitTopK, "top-k", 0, "Default number of search results")
	initCmd.Flags().StringArrayVar(&flagInitExclude, "exclude", nil, "Glob pattern to exclude (repeatable)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, _, err := resolveDir(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	storage := flagInitStorage
	if storage == "" {
		storage = cfg.Storage
	}
	kind, err := vectorstore.ParseKind(storage)
	if err != nil {
		return err
	}

	topK := flagInitTopK
	if topK <= 0 {
		topK = cfg.TopK
	}
	exclude := flagInitExclude
	if exclude == nil {
		exclude = cfg.Exclude
	}

	// First run convenience: leave an .env template for embeddings creds.
	if err := config.EnsureDotEnvTemplate(); err != nil {
		return err
	}

	prov, err := newProvider(flagInitModel)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	printInfo("", fmt.Sprintf("indexing %s using %s (%s storage)", root, prov.ModelID(), kind))

	res, err := index.Build(ctx, root, prov, index.BuildOptions{
		Storage: kind,
		TopK:    topK,
		Exclude: exclude,
	}, newLogger())
	if err != nil {
		return err
	}

	printOK("", fmt.Sprintf("index created at %s", manifest.Dir(root)))
	printOK("", fmt.Sprintf("%d file(s) indexed, %d chunk(s) embedded", res.Files, res.Chunks))
	return nil
}
