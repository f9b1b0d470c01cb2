package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	MySQL       MySQLConfig       `mapstructure:"mysql"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Lmstfy      LmstfyConfig      `mapstructure:"lmstfy"`
	Scanner     ScannerConfig     `mapstructure:"scanner"`
	Remediation RemediationConfig `mapstructure:"remediation"`
	Alerting    AlertingConfig    `mapstructure:"alerting"`
	Workers     []WorkerConfig    `mapstructure:"workers"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// 检查事件转发的 Pub/Sub 频道
	EventChannel string `mapstructure:"event_channel"`
	// 实体读取缓存 TTL
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
	// 自动修复任务投递队列
	RemediationQueue string `mapstructure:"remediation_queue"`
}

// ScannerConfig 扫描器配置
type ScannerConfig struct {
	SampleSize       int           `mapstructure:"sample_size"`       // 每个集成抽样的商品数
	StalenessWindow  time.Duration `mapstructure:"staleness_window"`  // 同步过期窗口（默认 72h）
	ProgressInterval int           `mapstructure:"progress_interval"` // 每处理多少个集成发一次进度事件
}

// RemediationConfig 自动修复配置
type RemediationConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"` // 同步任务状态轮询间隔
	SyncTimeout  time.Duration `mapstructure:"sync_timeout"`  // 同步任务等待上限（默认 30s）
}

// AlertingConfig 告警配置
type AlertingConfig struct {
	// 已配置凭证的通知渠道（渠道注册表在启动时据此填充）
	Channels []ChannelConfig `mapstructure:"channels"`
}

// ChannelConfig 通知渠道配置
type ChannelConfig struct {
	Name       string `mapstructure:"name"` // email / sms / webhook / in_app
	Credential string `mapstructure:"credential"`
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name       string           `mapstructure:"name"`
	QueueName  string           `mapstructure:"queue_name"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults 填充缺省值
func (c *Config) applyDefaults() {
	if c.Scanner.SampleSize <= 0 {
		c.Scanner.SampleSize = 100
	}
	if c.Scanner.StalenessWindow <= 0 {
		c.Scanner.StalenessWindow = 72 * time.Hour
	}
	if c.Scanner.ProgressInterval <= 0 {
		c.Scanner.ProgressInterval = 1
	}
	if c.Remediation.PollInterval <= 0 {
		c.Remediation.PollInterval = time.Second
	}
	if c.Remediation.SyncTimeout <= 0 {
		c.Remediation.SyncTimeout = 30 * time.Second
	}
	if c.Redis.CacheTTL <= 0 {
		c.Redis.CacheTTL = 5 * time.Minute
	}
	if c.Redis.EventChannel == "" {
		c.Redis.EventChannel = "accuracy_check_events"
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn is required")
	}
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy.host is required")
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	return nil
}
