// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持文件轮转
//   - xmetrics: 统一的追踪与指标接口，OpenTelemetry 实现
//
// 日志自动从 context 中提取追踪信息与请求 ID。
package observability
