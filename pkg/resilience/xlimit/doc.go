// Package xlimit 提供固定窗口的异步准入控制组件。
//
// # 语义
//
// 每个 (bucketID, 周期窗口) 对应一个计数器。窗口按周期单位对齐到日历边界
// （当前秒/分/时/日/月/年），旧窗口的计数器不会被递减，而是被新窗口的键取代并在窗口结束时过期。
//
// Accept 是原子的"低于阈值才递增"：count < limit 时递增并放行，否则拒绝且不递增。
// 同一窗口内对同一 bucket 的 N 个并发请求恰好放行 min(N, limit) 个。
//
// # 后端
//
//   - Redis: Lua 脚本在服务端完成比较与递增，首次创建时 PEXPIRE 到窗口结束（至少 1s）
//   - etcd: 基于 ModRevision 的 CAS 事务，租约 TTL 覆盖到窗口结束；冲突按全抖动退避重试，
//     尝试次数耗尽返回 ErrCASConflict
//
// 窗口与 TTL 使用同一时钟：Component 创建时把 WithClock 的时钟注入 Redis 与 etcd 后端。
// 计数器归属只由 key 决定，key 已包含窗口起点。
//   - Local: 进程内存，xxhash 分片 + LRU，适用于单实例或作为降级后端
//
// # 执行模型
//
// Component.Accept 不阻塞调用方：请求进入有界队列，由 worker 调用后端并恰好回调一次。
// 队列满或组件已关闭时立即以错误回调。调用方 ctx 的取消不会中断已提交的检查，
// 单次后端调用的超时由 Config.Timeout 控制。
//
// # 可选能力
//
//   - 熔断（sony/gobreaker）：后端连续失败后快速失败，返回 ErrBackendUnavailable
//   - 降级：基础设施错误时切换到 local / open / close 策略，默认不降级直接返回错误
//   - 指标：xlimit.requests.total、xlimit.denied.total、xlimit.fallback.total、xlimit.check.duration
package xlimit
