package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kamusis/mbed-cli/internal/config"
	"github.com/kamusis/mbed-cli/internal/embeddings"
)

var rootCmd = &cobra.Command{
	Use:          "mbed",
	Short:        "mbed - semantic search over a directory of documents",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `mbed maintains a per-directory semantic index under <dir>/.mbed/ and
answers similarity queries against it. Index once with 'mbed init', keep it
current with 'mbed update', and query with 'mbed search'.`,
}

var flagVerbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger returns the CLI logger: console output on stderr, warnings only
// unless --verbose is set.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// newProvider builds the embeddings provider from env/.env configuration.
// A non-empty model overrides the configured one; otherwise the user-level
// config default applies when nothing else names a model.
func newProvider(model string) (embeddings.Provider, error) {
	embCfg, err := embeddings.LoadConfig()
	if err != nil {
		return nil, err
	}
	if model != "" {
		embCfg.Model = model
	}
	if embCfg.Model == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		embCfg.Model = cfg.Model
	}
	return embeddings.NewFromConfig(embCfg)
}

// resolveDir resolves an optional leading directory argument, returning the
// absolute directory and the remaining args. A first argument that names an
// existing directory is taken as the target; otherwise the current
// directory is used.
func resolveDir(args []string) (string, []string, error) {
	dir := "."
	rest := args
	if len(args) > 0 {
		if st, err := os.Stat(args[0]); err == nil && st.IsDir() {
			dir = args[0]
			rest = args[1:]
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("cannot resolve directory %s: %w", dir, err)
	}
	return abs, rest, nil
}
