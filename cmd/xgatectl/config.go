package main

import (
	"errors"
	"time"

	"github.com/omeyang/xgate/pkg/config/xconf"
	"github.com/omeyang/xgate/pkg/gateway/xratelimit"
	"github.com/omeyang/xgate/pkg/resilience/xlimit"
)

// logConfig 日志配置，File 为空时输出到 stderr。
type logConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
}

type redisConfig struct {
	Addr     string `koanf:"addr"`
	DB       int    `koanf:"db"`
	Password string `koanf:"password"`
}

type etcdConfig struct {
	Endpoints        []string      `koanf:"endpoints"`
	DialTimeout      time.Duration `koanf:"dial_timeout"`
	KeepAliveTime    time.Duration `koanf:"keepalive_time"`
	KeepAliveTimeout time.Duration `koanf:"keepalive_timeout"`
}

// fileConfig xgatectl 配置文件。
type fileConfig struct {
	Log     logConfig         `koanf:"log"`
	Limiter xlimit.Config     `koanf:"limiter"`
	Redis   redisConfig       `koanf:"redis"`
	Etcd    etcdConfig        `koanf:"etcd"`
	Policy  xratelimit.Config `koanf:"-"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Log:     logConfig{Level: "info", Format: "text"},
		Limiter: xlimit.DefaultConfig(),
		Redis:   redisConfig{Addr: "127.0.0.1:6379"},
		Etcd: etcdConfig{
			Endpoints:        []string{"127.0.0.1:2379"},
			DialTimeout:      5 * time.Second,
			KeepAliveTime:    30 * time.Second,
			KeepAliveTimeout: 10 * time.Second,
		},
	}
}

// loadConfig 读取并校验配置文件。
func loadConfig(path string) (*xconf.Config, fileConfig, error) {
	c, err := xconf.New(path)
	if err != nil {
		return nil, fileConfig{}, err
	}
	cfg, err := decodeConfig(c)
	if err != nil {
		return nil, fileConfig{}, err
	}
	return c, cfg, nil
}

func decodeConfig(c *xconf.Config) (fileConfig, error) {
	cfg := defaultFileConfig()
	if err := c.Unmarshal("", &cfg); err != nil {
		return fileConfig{}, err
	}
	if err := cfg.Limiter.Validate(); err != nil {
		return fileConfig{}, err
	}
	if cfg.Limiter.Backend == "etcd" && len(cfg.Etcd.Endpoints) == 0 {
		return fileConfig{}, errors.New("xgatectl: etcd.endpoints is required for etcd backend")
	}
	policy, err := xratelimit.LoadConfig(c, "policy")
	if err != nil {
		return fileConfig{}, err
	}
	cfg.Policy = policy
	return cfg, nil
}
