package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/internal/tlsutil"
)

var (
	// ErrCacheMiss 键不存在或已过期
	ErrCacheMiss = errors.New("cache miss")
	// ErrClosed 管理器已关闭
	ErrClosed = errors.New("cache manager is closed")
)

// IsCacheMiss 判断是否为缓存未命中
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// connectTimeout 创建时 PING 的超时，健康检查复用
const connectTimeout = 5 * time.Second

// Config 缓存配置
type Config struct {
	Addr     string
	Password string
	DB       int
	// 键前缀，多个部署共用一个 redis 时隔离
	KeyPrefix string
	// Set 传入 ttl=0 时使用
	DefaultTTL   time.Duration
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	// 0 表示不做后台健康检查
	HealthCheckInterval time.Duration
	TLS                 bool
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		DefaultTTL:          24 * time.Hour,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// Manager 查询向量缓存的 redis 后端
type Manager struct {
	client *redis.Client
	config Config
	logger *zap.Logger
	closed atomic.Bool
	done   chan struct{}
}

// NewManager 连接 redis，PING 失败直接返回错误，调用方决定是否降级。
func NewManager(config Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := &redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	}
	if config.TLS {
		opts.TLSConfig = tlsutil.ClientTLSConfig(config.Addr)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	m := &Manager{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "cache")),
		done:   make(chan struct{}),
	}
	if config.HealthCheckInterval > 0 {
		go m.watch(config.HealthCheckInterval)
	}

	m.logger.Info("cache manager initialized",
		zap.String("addr", config.Addr),
		zap.String("key_prefix", config.KeyPrefix),
		zap.Duration("default_ttl", config.DefaultTTL),
	)
	return m, nil
}

func (m *Manager) live() (*redis.Client, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	return m.client, nil
}

// Get 读取字符串值，不存在时返回 ErrCacheMiss
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	c, err := m.live()
	if err != nil {
		return "", err
	}
	val, err := c.Get(ctx, m.config.KeyPrefix+key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrCacheMiss
	case err != nil:
		m.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("cache get %q: %w", key, err)
	}
	return val, nil
}

// Set 写入字符串值，ttl 为 0 时使用 DefaultTTL
func (m *Manager) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c, err := m.live()
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}
	if err := c.Set(ctx, m.config.KeyPrefix+key, value, ttl).Err(); err != nil {
		m.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// GetJSON 读取并解码 JSON 值（查询向量以 JSON 数组存储）
func (m *Manager) GetJSON(ctx context.Context, key string, dest any) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("decode cached value %q: %w", key, err)
	}
	return nil
}

// SetJSON 编码为 JSON 后写入
func (m *Manager) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %q: %w", key, err)
	}
	return m.Set(ctx, key, string(data), ttl)
}

// Ping 供 /ready 探针使用
func (m *Manager) Ping(ctx context.Context) error {
	c, err := m.live()
	if err != nil {
		return err
	}
	return c.Ping(ctx).Err()
}

// Close 停止健康检查并关闭连接，可重复调用
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(m.done)
	m.logger.Info("closing cache manager")
	return m.client.Close()
}

// watch 周期性 PING，失败只记日志；查询路径上的缓存错误本来就会被忽略
func (m *Manager) watch(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err := m.Ping(ctx)
		cancel()

		switch {
		case errors.Is(err, ErrClosed):
			return
		case err != nil:
			m.logger.Warn("cache health check failed", zap.Error(err))
		default:
			m.logger.Debug("cache health check passed")
		}
	}
}
