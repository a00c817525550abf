package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/internal/metrics"
	"github.com/BaSui01/scripturerag/rag"
	"github.com/BaSui01/scripturerag/rag/loader"
)

// =============================================================================
// 🏗️ build-index 命令
// =============================================================================

var buildIndexSmoke bool

var buildIndexCmd = &cobra.Command{
	Use:   "build-index",
	Short: "Embed the corpus catalog and save the index snapshot",
	Long: `Loads every catalog corpus found in the corpus directory, embeds all
documents in one pass and saves the snapshot to the configured backend.
Corpora whose file is missing are skipped with a warning.`,
	Args: cobra.NoArgs,
	RunE: runBuildIndex,
}

func init() {
	buildIndexCmd.Flags().BoolVar(&buildIndexSmoke, "smoke", false, "run sample searches against the new index")
	rootCmd.AddCommand(buildIndexCmd)
}

// smokeSearch 构建后的自检检索
type smokeSearch struct {
	query string
	topK  int
	scope rag.Scope
}

var smokeSearches = []smokeSearch{
	{query: "What is the soul?", topK: 3, scope: rag.SingleCorpus("Bhagavad Gita")},
	{query: "What is dharma?", topK: 5, scope: rag.Unscoped()},
	{query: "duties of a king", topK: 3, scope: rag.SingleCorpus("Arthashastra")},
}

func runBuildIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, logger, metrics.NewCollector("scripturerag", logger), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	start := time.Now()

	corpora, err := loader.NewCorpusLoader(cfg.Corpus.Dir, logger).LoadCatalog(ctx, a.catalog)
	if err != nil {
		return fmt.Errorf("load corpora: %w", err)
	}
	if len(corpora) == 0 {
		return fmt.Errorf("no corpus files found in %s", cfg.Corpus.Dir)
	}

	if err := a.store.Build(ctx, corpora); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := a.store.Save(ctx, a.snapshotter); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	logger.Info("Index built",
		zap.Int("corpora", len(corpora)),
		zap.Int("documents", a.store.Count()),
		zap.Int("dimension", a.store.Dimension()),
		zap.String("backend", cfg.Snapshot.Backend),
		zap.Duration("took", time.Since(start)),
	)
	for _, stat := range a.store.ListTexts() {
		cmd.Printf("  %-14s %-14s %6d\n", stat.Name, stat.Tradition, stat.EntryCount)
	}

	if buildIndexSmoke {
		return runSmokeSearches(ctx, cmd, a.store)
	}
	return nil
}

func runSmokeSearches(ctx context.Context, cmd *cobra.Command, s rag.Retriever) error {
	for _, smoke := range smokeSearches {
		label := "cross-text"
		if f := smoke.scope.Filter(); f != "" {
			label = f + " only"
		}
		cmd.Printf("\n--- %q (%s) ---\n", smoke.query, label)

		results, err := s.Search(ctx, smoke.query, smoke.topK, smoke.scope)
		if err != nil {
			return fmt.Errorf("smoke search %q: %w", smoke.query, err)
		}
		for _, r := range results {
			cmd.Printf("  [%.3f] [%s] Ch %s V %s: %s\n",
				r.Score, r.TextName, r.Chapter, r.Verse, truncate(r.Translation, 100))
		}
	}
	return nil
}

// truncate 按字符截断，超出时加省略号
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
