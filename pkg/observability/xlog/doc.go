// Package xlog 提供基于 log/slog 的上下文优先结构化日志。
//
// # 设计理念
//
//   - 所有方法强制传入 context.Context，自动注入 xctx 中的 trace_id/request_id
//   - 方法签名只接受 slog.Attr，避免隐式 key-value 转换
//   - 运行时动态调整级别（Leveler）
//   - Builder 返回 cleanup 函数，释放轮转文件等资源
//
// # 快速开始
//
//	logger, cleanup, err := xlog.New().
//	    SetLevel(xlog.LevelInfo).
//	    SetFormat("json").
//	    SetRotation("/var/log/xgate/gateway.log", xlog.WithMaxSize(100)).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
//	logger.Info(ctx, "policy evaluated", slog.String("outcome", "apply"))
package xlog
