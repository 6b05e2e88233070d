package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/omeyang/xgate/pkg/gateway/xpolicy"
	"github.com/omeyang/xgate/pkg/gateway/xratelimit"
	"github.com/omeyang/xgate/pkg/observability/xlog"
	"github.com/omeyang/xgate/pkg/resilience/xlimit"
)

// 启动时连通性检查的重试参数
const (
	readyAttempts = 3
	readyDelay    = 200 * time.Millisecond
)

func newLogger(cfg logConfig, stderr io.Writer) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().SetLevelString(cfg.Level).SetFormat(cfg.Format).SetEnrich(true)
	if cfg.File != "" {
		var opts []xlog.RotationOption
		if cfg.MaxSizeMB > 0 {
			opts = append(opts, xlog.WithMaxSize(cfg.MaxSizeMB))
		}
		if cfg.MaxBackups > 0 {
			opts = append(opts, xlog.WithMaxBackups(cfg.MaxBackups))
		}
		b.SetRotation(cfg.File, opts...)
	} else {
		b.SetOutput(stderr)
	}
	return b.Build()
}

// waitReady 按固定间隔重试 ping，直到成功或次数用尽。
func waitReady(ctx context.Context, name string, logger xlog.Logger, ping func(context.Context) error) error {
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(readyAttempts),
		retry.Delay(readyDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn(ctx, "xgatectl: backend not ready",
				slog.String("backend", name), slog.Uint64("attempt", uint64(n)+1), xlog.Err(err))
		}),
	).Do(func() error {
		return ping(ctx)
	})
	if err != nil {
		return fmt.Errorf("xgatectl: %s not reachable: %w", name, err)
	}
	return nil
}

func etcdClientConfig(cfg etcdConfig) clientv3.Config {
	return clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		DialOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:    cfg.KeepAliveTime,
				Timeout: cfg.KeepAliveTimeout,
			}),
		},
	}
}

// newBackend 按 limiter.backend 创建计数后端，返回的 cleanup 关闭底层客户端。
func newBackend(ctx context.Context, cfg fileConfig, logger xlog.Logger) (xlimit.Backend, func(), error) {
	switch cfg.Limiter.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB, Password: cfg.Redis.Password})
		if err := waitReady(ctx, "redis", logger, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		backend, err := xlimit.NewRedisBackend(rdb)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return backend, func() { _ = rdb.Close() }, nil

	case "etcd":
		client, err := clientv3.New(etcdClientConfig(cfg.Etcd))
		if err != nil {
			return nil, nil, fmt.Errorf("xgatectl: create etcd client: %w", err)
		}
		if err := waitReady(ctx, "etcd", logger, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.Etcd.DialTimeout)
			defer cancel()
			_, err := client.Status(ctx, cfg.Etcd.Endpoints[0])
			return err
		}); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		backend, err := xlimit.NewEtcdBackend(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return backend, func() { _ = client.Close() }, nil

	default:
		backend, err := xlimit.NewLocalBackend(cfg.Limiter.Local.Shards, cfg.Limiter.Local.Capacity)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() {}, nil
	}
}

// gateway 由配置组装出的限流管线
type gateway struct {
	pipeline  *xpolicy.Pipeline
	component *xlimit.Component
	cleanup   func()
}

// newGateway 组装管线。mp 为 nil 时不导出指标。
func newGateway(ctx context.Context, cfg fileConfig, logger xlog.Logger, sdkProvider *sdkmetric.MeterProvider) (*gateway, error) {
	// nil 指针装入接口后不再等于 nil，下游会把它当作已配置的 provider
	var mp metric.MeterProvider
	if sdkProvider != nil {
		mp = sdkProvider
	}
	backend, cleanup, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	component, err := xlimit.New(backend,
		xlimit.WithConfig(cfg.Limiter),
		xlimit.WithLogger(logger),
		xlimit.WithMeterProvider(mp),
	)
	if err != nil {
		cleanup()
		return nil, err
	}
	policy, err := xratelimit.New(cfg.Policy, component, xpolicy.DefaultFailureFactory{}, xratelimit.WithLogger(logger))
	if err != nil {
		_ = component.Close(ctx)
		cleanup()
		return nil, err
	}
	pipeline := xpolicy.NewPipeline(xpolicy.WithLogger(logger), xpolicy.WithMeterProvider(mp))
	if err := pipeline.Use("rate-limiting", policy); err != nil {
		_ = component.Close(ctx)
		cleanup()
		return nil, err
	}
	return &gateway{pipeline: pipeline, component: component, cleanup: cleanup}, nil
}

func (g *gateway) Close(ctx context.Context) {
	_ = g.component.Close(context.WithoutCancel(ctx))
	g.cleanup()
}
