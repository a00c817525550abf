package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/internal/metrics"
	"github.com/BaSui01/scripturerag/internal/telemetry"
)

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the question answering server",
	Long: `Loads the index snapshot and serves /api/ask, /api/texts and /api/health,
plus Prometheus metrics on the metrics port. Build the index first with
"scripturerag build-index".`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting scripturerag",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	collector := metrics.NewCollector("scripturerag", logger)
	a, err := newApp(cfg, logger, collector, appOptions{withGenerator: true})
	if err != nil {
		return err
	}

	// 没有快照时拒绝启动：空索引只会给出"无依据"回答
	if err := a.loadSnapshot(cmd.Context()); err != nil {
		a.Close()
		logger.Error("failed to load index snapshot, run build-index first", zap.Error(err))
		return err
	}
	logger.Info("Index loaded",
		zap.Int("documents", a.store.Count()),
		zap.Int("dimension", a.store.Dimension()),
		zap.Any("texts", a.store.CorpusCounts()),
	)

	srv := NewServer(a, otelProviders)
	if err := srv.Start(); err != nil {
		srv.Shutdown()
		return err
	}

	err = srv.WaitForShutdown(cmd.Context())
	logger.Info("scripturerag stopped")
	return err
}
