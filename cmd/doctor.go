package cmd

import (
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/kamusis/mbed-cli/internal/embeddings"
	"github.com/kamusis/mbed-cli/internal/index"
	"github.com/kamusis/mbed-cli/internal/manifest"
	"github.com/kamusis/mbed-cli/internal/vectorstore"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [dir]",
	Short: "Run pre-flight checks on the environment and an index",
	Long: `Check that embeddings are configured and that the directory's index, if
present, is readable and complete. Run this when something seems wrong.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, args []string) error {
	root, _, err := resolveDir(args)
	if err != nil {
		return err
	}

	allOK := true

	// ── Embeddings configuration ──────────────────────────────────────────────
	printSection("Embeddings")
	embCfg, err := embeddings.LoadConfig()
	switch {
	case err != nil:
		printErr("", fmt.Sprintf("cannot load embeddings config: %v", err))
		allOK = false
	case embCfg.Model == "":
		printWarn("", "no embeddings model configured (set MBED_EMBEDDINGS_MODEL)")
		allOK = false
	case embCfg.APIKey == "":
		printWarn("", "no embeddings API key configured (set MBED_EMBEDDINGS_API_KEY)")
		allOK = false
	default:
		printOK("", fmt.Sprintf("provider %s, model %s (%s)", embCfg.Provider, embCfg.Model, embCfg.BaseURL))
	}

	// ── Index health ──────────────────────────────────────────────────────────
	printSection("Index")
	if !manifest.Exists(root) {
		printMiss("", fmt.Sprintf("%s is not indexed; run 'mbed init'", root))
		if !allOK {
			return fmt.Errorf("doctor found problems")
		}
		return nil
	}

	m, err := manifest.Load(root)
	if err != nil {
		printErr("", fmt.Sprintf("cannot load manifest: %v", err))
		return fmt.Errorf("doctor found problems")
	}
	printOK("", fmt.Sprintf("manifest: %d tracked file(s), model %s, storage %s", len(m.Files), m.EmbeddingModel, m.Storage))
	printInfo("", fmt.Sprintf("created %s, last updated %s", m.CreatedAt, m.LastUpdated))

	if !vectorstore.ArtifactsPresent(m.Storage, manifest.Dir(root)) {
		printErr("", fmt.Sprintf("storage artifacts missing in %s", manifest.Dir(root)))
		allOK = false
	} else {
		printOK("", fmt.Sprintf("storage artifacts present (%s)", m.Storage))
	}

	// ── Lock state ────────────────────────────────────────────────────────────
	l := flock.New(index.LockPath(root))
	if locked, err := l.TryLock(); err == nil && locked {
		_ = l.Unlock()
		printOK("", "index lock is free")
	} else {
		printWarn("", "index is locked by another mbed process")
	}

	fmt.Println()
	if !allOK {
		return fmt.Errorf("doctor found problems")
	}
	printOK("", "everything looks healthy")
	return nil
}
