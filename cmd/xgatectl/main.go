// xgatectl 是 xgate 限流管线的命令行工具。
//
// 用法:
//
//	xgatectl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-t, --timeout    单次评估超时时间 (默认: 5s)
//	    --log-level  覆盖配置文件中的日志级别
//
// 命令:
//
//	bucket     打印请求对应的计数桶标识，无法确定时退出码为 1
//	check      按配置执行一次限流评估并打印 APPLY / FAIL / ERROR
//	load       并发发起多次评估并统计结果
//	validate   校验配置文件，--watch 时持续监视
//
// 退出码:
//
//	0: 成功（check 命令: 请求被放行）
//	1: 执行失败，或 check 的结果为 FAIL / ERROR
//	2: 参数错误
//
// 示例:
//
//	xgatectl bucket -k key1 --app-org org1 --app-id app1
//	xgatectl bucket -k key1 -g User --user-header X-User -H X-User=alice
//	xgatectl check -c xgate.yaml -k key1 --svc-org orgS --svc-id svc1
//	xgatectl load -c xgate.yaml -k key1 -n 1000 --concurrency 32 --rps 200 --metrics
//	xgatectl validate -c xgate.yaml --watch
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

const defaultTimeout = 5 * time.Second

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	return run(ctx, os.Args, os.Stdout, os.Stderr)
}

func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xgatectl",
		Usage:     "xgate 限流管线命令行工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "单次评估超时时间",
				Value:   defaultTimeout,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "覆盖配置文件中的日志级别 (debug/info/warn/error)",
			},
		},
		Commands: createCommands(),
		// 退出码统一由 run 映射
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := createApp(stdout, stderr).Run(ctx, args)
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		fmt.Fprintf(stderr, "参数错误: %v\n", err)
		return 2
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}

// isCLIUsageError 识别 urfave/cli 产生的参数解析错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{
		"flag provided but not defined",
		"Required flag",
		"Required flags",
		"invalid value",
		"No help topic",
	} {
		if strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}

// setupSignalHandler 第一次信号取消 ctx，第二次信号强制退出（130 = 128 + SIGINT）。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
