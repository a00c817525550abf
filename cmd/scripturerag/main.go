// =============================================================================
// scripturerag 主入口
// =============================================================================
// 完整服务入口点：HTTP 问答服务、索引构建、快照表迁移与本地问答
//
// 使用方法:
//
//	scripturerag serve                       # 启动服务
//	scripturerag serve --config config.yaml  # 指定配置文件
//	scripturerag build-index --smoke         # 构建索引并跑三条检索自检
//	scripturerag ask "What is dharma?"       # 本地问答（不经过 HTTP）
//	scripturerag texts                       # 列出索引中的语料
//	scripturerag migrate up                  # 运行快照表迁移
//	scripturerag health                      # 探测运行中的服务
//	scripturerag version                     # 显示版本信息
// =============================================================================

// @title scripturerag API
// @version 1.0.0
// @description Retrieval-augmented question answering over a fixed set of scripture corpora.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/BaSui01/scripturerag/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "scripturerag",
	Short: "Question answering over scripture corpora",
	Long: `scripturerag embeds a fixed catalog of scripture corpora, persists the
index as a snapshot and answers questions grounded in retrieved verses.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// 默认的 .env 不存在时忽略，显式指定的文件必须可读
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
}

// loadConfig 按 默认值 → YAML → 环境变量 的顺序加载并校验配置
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
