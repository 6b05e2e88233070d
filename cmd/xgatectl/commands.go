package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/omeyang/xgate/pkg/config/xconf"
	"github.com/omeyang/xgate/pkg/gateway/xpolicy"
	"github.com/omeyang/xgate/pkg/gateway/xratelimit"
	"github.com/omeyang/xgate/pkg/observability/xlog"
)

// exitError 命令已完成输出，只需设置非零退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func createCommands() []*cli.Command {
	return []*cli.Command{
		createBucketCommand(),
		createCheckCommand(),
		createLoadCommand(),
		createValidateCommand(),
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "配置文件路径（.yaml/.yml/.json）",
		Required: true,
	}
}

func createBucketCommand() *cli.Command {
	flags := append([]cli.Flag{
		&cli.StringFlag{Name: "granularity", Aliases: []string{"g"}, Usage: "计数粒度：User | Application | Service", Value: string(xratelimit.GranularityApplication)},
		&cli.StringFlag{Name: "user-header", Usage: "User 粒度下标识用户的请求头"},
	}, requestFlags()...)

	return &cli.Command{
		Name:  "bucket",
		Usage: "打印请求对应的计数桶标识",
		Flags: flags,
		Action: func(_ context.Context, cmd *cli.Command) error {
			req, err := requestFromFlags(cmd)
			if err != nil {
				return err
			}
			var g xratelimit.Granularity
			_ = g.UnmarshalText([]byte(cmd.String("granularity")))
			return cmdBucket(cmd.Root().Writer, cmd.Root().ErrWriter, req, xratelimit.Config{
				Granularity: g,
				UserHeader:  cmd.String("user-header"),
			})
		},
	}
}

func cmdBucket(stdout, stderr io.Writer, req *xpolicy.Request, cfg xratelimit.Config) error {
	id, ok := xratelimit.BucketID(req, cfg)
	if !ok {
		fmt.Fprintf(stderr, "无法确定计数桶：请求缺少请求头 %q\n", cfg.UserHeader)
		return &exitError{code: 1}
	}
	fmt.Fprintln(stdout, id)
	return nil
}

func createCheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "按配置执行一次限流评估并打印结果",
		Flags: append([]cli.Flag{configFlag()}, requestFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req, err := requestFromFlags(cmd)
			if err != nil {
				return err
			}
			return withGateway(ctx, cmd, nil, func(ctx context.Context, gw *gateway, _ xlog.Logger) error {
				ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
				defer cancel()
				out, err := gw.pipeline.Evaluate(ctx, req)
				if err != nil {
					return err
				}
				printOutcome(cmd.Root().Writer, out)
				if out.Kind() != xpolicy.KindApply {
					return &exitError{code: 1}
				}
				return nil
			})
		},
	}
}

func printOutcome(w io.Writer, out xpolicy.Outcome) {
	switch out.Kind() {
	case xpolicy.KindApply:
		fmt.Fprintln(w, "APPLY")
	case xpolicy.KindFail:
		f := out.Failure()
		fmt.Fprintf(w, "FAIL %s (%d): %s\n", f.Code(), int(f.Code()), f.Message())
	case xpolicy.KindError:
		fmt.Fprintf(w, "ERROR %v\n", out.Err())
	}
}

func createLoadCommand() *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "并发发起多次评估并统计结果",
		Flags: append([]cli.Flag{
			configFlag(),
			&cli.IntFlag{Name: "requests", Aliases: []string{"n"}, Usage: "评估总次数", Value: 100},
			&cli.IntFlag{Name: "concurrency", Usage: "最大并发数", Value: 16},
			&cli.FloatFlag{Name: "rps", Usage: "每秒发起的评估数，0 表示不限速"},
			&cli.BoolFlag{Name: "metrics", Usage: "结束后打印指标汇总"},
		}, requestFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req, err := requestFromFlags(cmd)
			if err != nil {
				return err
			}
			opts := loadOptions{
				requests:    int(cmd.Int("requests")),
				concurrency: int(cmd.Int("concurrency")),
				rps:         cmd.Float("rps"),
				timeout:     cmd.Duration("timeout"),
			}
			if opts.requests <= 0 || opts.concurrency <= 0 || opts.rps < 0 {
				return &usageError{msg: "requests and concurrency must be positive, rps cannot be negative"}
			}

			reader := sdkmetric.NewManualReader()
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			defer func() { _ = mp.Shutdown(context.WithoutCancel(ctx)) }()

			return withGateway(ctx, cmd, mp, func(ctx context.Context, gw *gateway, _ xlog.Logger) error {
				stats, err := runLoad(ctx, gw.pipeline, req, opts)
				if err != nil {
					return err
				}
				w := cmd.Root().Writer
				fmt.Fprintf(w, "apply=%d fail=%d error=%d elapsed=%s\n",
					stats.apply.Load(), stats.fail.Load(), stats.errored.Load(), stats.elapsed.Round(time.Millisecond))
				if cmd.Bool("metrics") {
					return printMetrics(ctx, w, reader)
				}
				return nil
			})
		},
	}
}

type loadOptions struct {
	requests    int
	concurrency int
	rps         float64
	timeout     time.Duration
}

type loadStats struct {
	apply, fail, errored atomic.Int64
	elapsed              time.Duration
}

// runLoad 按 opts 并发评估 req。单次评估超时计为 error，ctx 取消时提前结束。
func runLoad(ctx context.Context, pipeline *xpolicy.Pipeline, req *xpolicy.Request, opts loadOptions) (*loadStats, error) {
	var limiter *rate.Limiter
	if opts.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.rps), 1)
	}
	stats := &loadStats{}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)
	for range opts.requests {
		if limiter != nil {
			if err := limiter.Wait(gctx); err != nil {
				break
			}
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ectx, cancel := context.WithTimeout(gctx, opts.timeout)
			defer cancel()
			out, err := pipeline.Evaluate(ectx, req)
			switch {
			case err != nil:
				stats.errored.Add(1)
			case out.Kind() == xpolicy.KindApply:
				stats.apply.Add(1)
			case out.Kind() == xpolicy.KindFail:
				stats.fail.Add(1)
			default:
				stats.errored.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	stats.elapsed = time.Since(start)
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// printMetrics 打印所有整型计数器，每个数据点一行。
func printMetrics(ctx context.Context, w io.Writer, reader sdkmetric.Reader) error {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return err
	}
	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				lines = append(lines, fmt.Sprintf("%s{%s} %d", m.Name, dp.Attributes.Encoded(attribute.DefaultEncoder()), dp.Value))
			}
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

func createValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "校验配置文件，--watch 时在文件变化后重新校验",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "持续监视配置文件"},
			&cli.DurationFlag{Name: "debounce", Usage: "文件变化的合并间隔", Value: xconf.DefaultDebounce},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w, errW := cmd.Root().Writer, cmd.Root().ErrWriter
			c, cfg, err := loadConfig(cmd.String("config"))
			if err != nil {
				fmt.Fprintf(errW, "invalid: %v\n", err)
				return &exitError{code: 1}
			}
			printSummary(w, cfg)
			if !cmd.Bool("watch") {
				return nil
			}
			err = c.Watch(ctx, cmd.Duration("debounce"), func(c *xconf.Config, err error) {
				if err == nil {
					cfg, err = decodeConfig(c)
				}
				if err != nil {
					fmt.Fprintf(errW, "invalid: %v\n", err)
					return
				}
				printSummary(w, cfg)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func printSummary(w io.Writer, cfg fileConfig) {
	backend := cfg.Limiter.Backend
	if backend == "" {
		backend = "local"
	}
	fmt.Fprintf(w, "ok: backend=%s policy=%d/%s granularity=%s\n",
		backend, cfg.Policy.Limit, xratelimit.MapPeriod(cfg.Policy.Period), cfg.Policy.Granularity)
}

// withGateway 加载配置并组装管线，执行 fn 后释放资源。
func withGateway(ctx context.Context, cmd *cli.Command, mp *sdkmetric.MeterProvider,
	fn func(ctx context.Context, gw *gateway, logger xlog.Logger) error) error {
	_, cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}
	logger, closeLog, err := newLogger(cfg.Log, cmd.Root().ErrWriter)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	gw, err := newGateway(ctx, cfg, logger, mp)
	if err != nil {
		return err
	}
	defer gw.Close(ctx)
	return fn(ctx, gw, logger)
}
