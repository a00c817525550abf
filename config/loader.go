// =============================================================================
// 📦 scripturerag 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("SCRIPTURERAG").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is the prefix used for environment overrides.
const DefaultEnvPrefix = "SCRIPTURERAG"

// Provider API key fallbacks, checked in order when a section has no key.
var apiKeyFallbackEnv = []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 scripturerag 的完整配置结构
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Corpus 语料目录与目录清单
	Corpus CorpusConfig `yaml:"corpus" env:"CORPUS"`

	// Retrieval 检索参数
	Retrieval RetrievalConfig `yaml:"retrieval" env:"RETRIEVAL"`

	// Embedding 向量化服务配置
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`

	// Generation 生成服务配置
	Generation GenerationConfig `yaml:"generation" env:"GENERATION"`

	// Snapshot 索引快照配置
	Snapshot SnapshotConfig `yaml:"snapshot" env:"SNAPSHOT"`

	// Redis 查询向量缓存
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 数据库配置（快照后端为 database 时使用）
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口，0 表示不启动
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时（需覆盖一次完整的生成调用）
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// API Key 列表，为空时不鉴权
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
	// 允许通过 query 参数传递 API Key
	AllowQueryAPIKey bool `yaml:"allow_query_api_key" env:"ALLOW_QUERY_API_KEY"`
	// CORS 允许的来源
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// 每个 IP 的限流速率
	RateLimitRPS int `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// 问题最大长度（字符）
	MaxQuestionLength int `yaml:"max_question_length" env:"MAX_QUESTION_LENGTH"`
	// TLS 证书与私钥，均设置时以 HTTPS 监听
	TLSCertFile string `yaml:"tls_cert_file" env:"TLS_CERT_FILE"`
	TLSKeyFile  string `yaml:"tls_key_file" env:"TLS_KEY_FILE"`
}

// CorpusSpec 描述一个语料：名称、传统与文件名
type CorpusSpec struct {
	Name      string `yaml:"name" json:"name"`
	Tradition string `yaml:"tradition" json:"tradition"`
	File      string `yaml:"file" json:"file"`
}

// CorpusConfig 语料配置
type CorpusConfig struct {
	// 语料 JSON 文件所在目录
	Dir string `yaml:"dir" env:"DIR"`
	// 语料目录清单，只能通过 YAML 配置
	Catalog []CorpusSpec `yaml:"catalog" env:"-"`
}

// RetrievalConfig 检索配置
type RetrievalConfig struct {
	// 默认返回条数
	TopK int `yaml:"top_k" env:"TOP_K"`
	// 相关度阈值，低于该分数的段落被丢弃
	ScoreThreshold float64 `yaml:"score_threshold" env:"SCORE_THRESHOLD"`
	// 不限定语料时的最小返回条数
	UnscopedMinTopK int `yaml:"unscoped_min_top_k" env:"UNSCOPED_MIN_TOP_K"`
	// 对话历史最多保留的消息数
	HistoryMaxMessages int `yaml:"history_max_messages" env:"HISTORY_MAX_MESSAGES"`
	// 单条历史消息的最大字符数
	HistoryMaxChars int `yaml:"history_max_chars" env:"HISTORY_MAX_CHARS"`
	// 查询向量缓存 TTL，0 表示不缓存
	QueryCacheTTL time.Duration `yaml:"query_cache_ttl" env:"QUERY_CACHE_TTL"`
}

// EmbeddingConfig 向量化配置
type EmbeddingConfig struct {
	// Provider: gemini, ollama
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API Key（gemini）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 每批文本数
	BatchSize int `yaml:"batch_size" env:"BATCH_SIZE"`
	// 限流时的最大尝试次数（含首次）
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	// 退避基础延迟，每次尝试翻倍
	BaseDelay time.Duration `yaml:"base_delay" env:"BASE_DELAY"`
	// 批次之间的固定间隔
	BatchInterval time.Duration `yaml:"batch_interval" env:"BATCH_INTERVAL"`
	// 单次请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// GenerationConfig 生成配置
type GenerationConfig struct {
	// Provider: gemini, ollama
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API Key（gemini）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// Top-P
	TopP float64 `yaml:"top_p" env:"TOP_P"`
	// 最大输出 Token 数
	MaxOutputTokens int `yaml:"max_output_tokens" env:"MAX_OUTPUT_TOKENS"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// SnapshotConfig 快照配置
type SnapshotConfig struct {
	// Backend: file, database
	Backend string `yaml:"backend" env:"BACKEND"`
	// 快照文件路径（file 后端）
	Path string `yaml:"path" env:"PATH"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用查询向量缓存
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 启用 TLS
	TLS bool `yaml:"tls" env:"TLS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 时为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器，环境变量前缀默认 SCRIPTURERAG
func NewLoader() *Loader {
	return &Loader{envPrefix: DefaultEnvPrefix, lookupEnv: os.LookupEnv}
}

// WithConfigPath 设置 YAML 文件路径，文件不存在时只用默认值与环境变量
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 追加一个加载完成后执行的校验
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 依次叠加默认值、YAML 文件、环境变量，然后补 API Key 并执行校验
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := l.applyFile(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}
	if err := applyEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix, l.lookupEnv); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	l.applyAPIKeyFallback(cfg)

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

func (l *Loader) applyFile(cfg *Config) error {
	if l.configPath == "" {
		return nil
	}
	data, err := os.ReadFile(l.configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// applyEnv 按 env 标签递归覆盖字段，嵌套结构体的键为 PREFIX_SECTION_FIELD。
// 空值视为未设置。
func applyEnv(v reflect.Value, prefix string, lookup func(string) (string, bool)) error {
	t := v.Type()
	for i := range v.NumField() {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag
		field := v.Field(i)

		if field.Kind() == reflect.Struct {
			if err := applyEnv(field, key, lookup); err != nil {
				return err
			}
			continue
		}

		raw, ok := lookup(key)
		if !ok || raw == "" {
			continue
		}
		if err := parseInto(field, raw); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// parseInto 把字符串解析为字段的类型；字符串切片按逗号拆分
func parseInto(field reflect.Value, raw string) error {
	if !field.CanSet() {
		return nil
	}
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
	return nil
}

// applyAPIKeyFallback 未配置的 Gemini key 从 GOOGLE_API_KEY / GEMINI_API_KEY 补齐
func (l *Loader) applyAPIKeyFallback(cfg *Config) {
	var fallback string
	for _, key := range apiKeyFallbackEnv {
		if v, ok := l.lookupEnv(key); ok && strings.TrimSpace(v) != "" {
			fallback = strings.TrimSpace(v)
			break
		}
	}
	if fallback == "" {
		return
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = fallback
	}
	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = fallback
	}
}

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 只用默认值与环境变量
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置，收集所有错误后一次返回
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.Server.MaxQuestionLength <= 0 {
		errs = append(errs, "max_question_length must be positive")
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		errs = append(errs, "tls_cert_file and tls_key_file must be set together")
	}

	if c.Retrieval.TopK <= 0 {
		errs = append(errs, "top_k must be positive")
	}
	if c.Retrieval.UnscopedMinTopK < 0 {
		errs = append(errs, "unscoped_min_top_k must not be negative")
	}
	if c.Retrieval.ScoreThreshold < -1 || c.Retrieval.ScoreThreshold > 1 {
		errs = append(errs, "score_threshold must be between -1 and 1")
	}
	if c.Retrieval.HistoryMaxMessages < 0 || c.Retrieval.HistoryMaxChars < 0 {
		errs = append(errs, "history limits must not be negative")
	}

	switch c.Embedding.Provider {
	case "gemini", "ollama":
	default:
		errs = append(errs, fmt.Sprintf("unknown embedding provider %q", c.Embedding.Provider))
	}
	if c.Embedding.BatchSize < 1 {
		errs = append(errs, "embedding batch_size must be at least 1")
	}
	if c.Embedding.MaxAttempts < 1 {
		errs = append(errs, "embedding max_attempts must be at least 1")
	}
	if c.Embedding.BaseDelay < 0 || c.Embedding.BatchInterval < 0 {
		errs = append(errs, "embedding delays must not be negative")
	}

	switch c.Generation.Provider {
	case "gemini", "ollama":
	default:
		errs = append(errs, fmt.Sprintf("unknown generation provider %q", c.Generation.Provider))
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, "temperature must be between 0 and 2")
	}
	if c.Generation.TopP <= 0 || c.Generation.TopP > 1 {
		errs = append(errs, "top_p must be in (0, 1]")
	}
	if c.Generation.MaxOutputTokens <= 0 {
		errs = append(errs, "max_output_tokens must be positive")
	}

	switch c.Snapshot.Backend {
	case "file":
		if c.Snapshot.Path == "" {
			errs = append(errs, "snapshot path is required for the file backend")
		}
	case "database":
		if c.Database.Driver == "" {
			errs = append(errs, "database driver is required for the database backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown snapshot backend %q", c.Snapshot.Backend))
	}

	seen := make(map[string]struct{}, len(c.Corpus.Catalog))
	for _, ce := range c.Corpus.Catalog {
		if strings.TrimSpace(ce.Name) == "" {
			errs = append(errs, "catalog entry without name")
			continue
		}
		if _, dup := seen[ce.Name]; dup {
			errs = append(errs, fmt.Sprintf("duplicate catalog entry %q", ce.Name))
		}
		seen[ce.Name] = struct{}{}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
