package config

import (
	"errors"
	"time"

	"artfolio/pkg/config"
)

// OutboxConfig outbox dispatcher 配置
type OutboxConfig struct {
	IntervalMs int `yaml:"interval_ms"`
	BatchSize  int `yaml:"batch_size"`
	MaxRetries int `yaml:"max_retries"`
}

// Interval 轮询间隔，默认 1 秒
func (c OutboxConfig) Interval() time.Duration {
	if c.IntervalMs <= 0 {
		return time.Second
	}
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// WorkerConfig 健康度 worker 配置
type WorkerConfig struct {
	Queue         string `yaml:"queue"`
	DedupTTLHours int    `yaml:"dedup_ttl_hours"`
	MetricsPort   string `yaml:"metrics_port"`
}

// DedupTTL 去重键保留时间，默认 24 小时
func (c WorkerConfig) DedupTTL() time.Duration {
	if c.DedupTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.DedupTTLHours) * time.Hour
}

type Config struct {
	DB      config.DBConfig      `yaml:"db"`
	MQ      config.MQConfig      `yaml:"mq"`
	Redis   config.RedisConfig   `yaml:"redis"`
	JWT     config.JWTConfig     `yaml:"jwt"`
	Server  config.ServerConfig  `yaml:"server"`
	Storage config.StorageConfig `yaml:"storage"`
	OTel    config.OTelConfig    `yaml:"otel"`
	Outbox  OutboxConfig         `yaml:"outbox"`
	Worker  WorkerConfig         `yaml:"worker"`
}

// Load 读取 <dir>/base.yaml 与 CONFIG_ENV 对应的环境文件，再用环境变量覆盖
func Load(dir string) (*Config, error) {
	merged, err := config.LoadConfig(config.GetConfigEnv(), dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := config.Decode(merged, &cfg); err != nil {
		return nil, err
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideStorageFromEnv(&cfg.Storage)
	config.OverrideOTelFromEnv(&cfg.OTel)

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Worker.Queue == "" {
		cfg.Worker.Queue = "project.health.q"
	}
	if cfg.Worker.MetricsPort == "" {
		cfg.Worker.MetricsPort = "9090"
	}

	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &cfg, nil
}
