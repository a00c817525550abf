// =============================================================================
// 📦 scripturerag 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/scripturerag/guardrails"
	"github.com/BaSui01/scripturerag/rag"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Corpus:     DefaultCorpusConfig(),
		Retrieval:  DefaultRetrievalConfig(),
		Embedding:  DefaultEmbeddingConfig(),
		Generation: DefaultGenerationConfig(),
		Snapshot:   DefaultSnapshotConfig(),
		Redis:      DefaultRedisConfig(),
		Database:   DefaultDatabaseConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:           8080,
		MetricsPort:        9091,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       150 * time.Second,
		ShutdownTimeout:    15 * time.Second,
		CORSAllowedOrigins: []string{"*"},
		RateLimitRPS:       20,
		RateLimitBurst:     40,
		MaxQuestionLength:  guardrails.DefaultMaxQuestionLength,
	}
}

// DefaultCatalog 返回默认语料清单
func DefaultCatalog() []CorpusSpec {
	return []CorpusSpec{
		{Name: "Bhagavad Gita", Tradition: "Vedic", File: "corpus_gita.json"},
		{Name: "Upanishads", Tradition: "Vedic", File: "corpus_upanishads.json"},
		{Name: "Manusmriti", Tradition: "Dharmashastra", File: "corpus_manusmriti.json"},
		{Name: "Arthashastra", Tradition: "Arthashastra", File: "corpus_arthashastra.json"},
		{Name: "Mahabharata", Tradition: "Epic", File: "corpus_mahabharata.json"},
		{Name: "Ramayana", Tradition: "Epic", File: "corpus_ramayana.json"},
	}
}

// DefaultCorpusConfig 返回默认语料配置
func DefaultCorpusConfig() CorpusConfig {
	return CorpusConfig{
		Dir:     "data",
		Catalog: DefaultCatalog(),
	}
}

// DefaultRetrievalConfig 返回默认检索配置，数值取自 rag 包
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:               rag.DefaultTopK,
		ScoreThreshold:     rag.DefaultScoreThreshold,
		UnscopedMinTopK:    rag.DefaultUnscopedMinTopK,
		HistoryMaxMessages: rag.DefaultHistoryMaxMessages,
		HistoryMaxChars:    rag.DefaultHistoryMaxChars,
		QueryCacheTTL:      24 * time.Hour,
	}
}

// DefaultEmbeddingConfig 返回默认向量化配置
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:      "gemini",
		Model:         "gemini-embedding-001",
		BatchSize:     50,
		MaxAttempts:   5,
		BaseDelay:     5 * time.Second,
		BatchInterval: 500 * time.Millisecond,
		Timeout:       60 * time.Second,
	}
}

// DefaultGenerationConfig 返回默认生成配置
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Provider:        "gemini",
		Model:           "gemini-2.5-flash",
		Temperature:     0.3,
		TopP:            0.9,
		MaxOutputTokens: 8192,
		Timeout:         120 * time.Second,
	}
}

// DefaultSnapshotConfig 返回默认快照配置
func DefaultSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		Backend: "file",
		Path:    "data/index.json",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		User:            "scripturerag",
		Password:        "",
		Name:            "scripturerag",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "scripturerag",
		SampleRate:   0.1,
	}
}
