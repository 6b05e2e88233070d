// Package xctx 管理请求级上下文字段（追踪信息、请求 ID）。
//
// 网关在一次策略链评估期间会跨越多个 goroutine（计数器回调可能在
// worker 上执行），请求 ID 与追踪字段需要随 context 一起传递，
// 由 xlog 与 xmetrics 自动读取。
//
//	ctx, _ = xctx.EnsureRequestID(ctx)
//	logger.Info(ctx, "evaluated") // 自动携带 request_id
package xctx
