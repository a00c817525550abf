package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BaSui01/scripturerag/config"
	"github.com/BaSui01/scripturerag/guardrails"
	"github.com/BaSui01/scripturerag/internal/metrics"
	"github.com/BaSui01/scripturerag/rag"
	"github.com/BaSui01/scripturerag/types"
)

// =============================================================================
// 📖 ask / texts 命令（直接读取本地快照，不经过 HTTP）
// =============================================================================

var (
	askTextFilter   string
	askCompareTexts []string
	askJSON         bool
	textsJSON       bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the local index",
	Long: `Runs the full retrieval and generation pipeline against the local index
snapshot. Use --text to restrict retrieval to one corpus or --compare with two
or more corpora to compare them.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

var textsCmd = &cobra.Command{
	Use:   "texts",
	Short: "List the corpora in the local index",
	Args:  cobra.NoArgs,
	RunE:  runTexts,
}

func init() {
	askCmd.Flags().StringVarP(&askTextFilter, "text", "t", "", "restrict retrieval to one corpus")
	askCmd.Flags().StringSliceVar(&askCompareTexts, "compare", nil, "compare two or more corpora (comma separated)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the result as JSON")
	textsCmd.Flags().BoolVar(&textsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(askCmd, textsCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	// 参数冲突在加载索引之前拒绝
	if _, err := rag.ResolveScope(askTextFilter, askCompareTexts); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkQuestion(cmd.Context(), guardrails.NewQuestionGuard(cfg.Server.MaxQuestionLength), args[0]); err != nil {
		return err
	}

	a, err := openLocalApp(cmd, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.orchestrator.Query(cmd.Context(), rag.QueryRequest{
		Question:     args[0],
		TextFilter:   askTextFilter,
		CompareTexts: askCompareTexts,
	})
	if err != nil {
		return err
	}

	if askJSON {
		return printJSON(cmd, result)
	}
	printAnswer(cmd, result)
	return nil
}

func runTexts(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openLocalApp(cmd, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	stats := a.store.ListTexts()
	if textsJSON {
		return printJSON(cmd, stats)
	}
	if len(stats) == 0 {
		cmd.Println("Index is empty.")
		return nil
	}
	for _, s := range stats {
		cmd.Printf("%-14s %-14s %6d\n", s.Name, s.Tradition, s.EntryCount)
	}
	return nil
}

// openLocalApp 装配组件并加载快照。CLI 输出走 stdout，日志只保留警告以上。
func openLocalApp(cmd *cobra.Command, cfg *config.Config, withGenerator bool) (*app, error) {
	if cfg.Log.Level == "" || cfg.Log.Level == "info" || cfg.Log.Level == "debug" {
		cfg.Log.Level = "warn"
	}
	cfg.Log.OutputPaths = []string{"stderr"}
	logger := initLogger(cfg.Log)

	a, err := newApp(cfg, logger, metrics.NewCollector("scripturerag", logger), appOptions{withGenerator: withGenerator})
	if err != nil {
		return nil, err
	}
	if err := a.loadSnapshot(cmd.Context()); err != nil {
		a.Close()
		return nil, fmt.Errorf("load index snapshot (run build-index first): %w", err)
	}
	return a, nil
}

// checkQuestion 与 /api/ask 使用同一条校验链
func checkQuestion(ctx context.Context, guard guardrails.Validator, question string) error {
	res, err := guard.Validate(ctx, question)
	if err != nil {
		return err
	}
	if !res.Valid {
		return types.NewError(types.ErrInvalidRequest, res.FirstError())
	}
	return nil
}

func printAnswer(cmd *cobra.Command, res *rag.QueryResult) {
	cmd.Println(res.Answer)
	if len(res.Citations) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Verses:")
	for i, c := range res.Citations {
		ref := c.Chapter + "." + c.Verse
		if c.Section != "" {
			ref = c.Section + " " + ref
		}
		cmd.Printf("  [%d] %s %s (%.3f)\n", i+1, c.TextName, ref, c.RelevanceScore)
		cmd.Printf("      %s\n", truncate(strings.TrimSpace(c.Translation), 160))
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
