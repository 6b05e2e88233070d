// Package xasync 提供单次完成的异步结果原语。
//
// # 核心概念
//
//   - Result：异步结果，值与错误二选一，永远不会同时存在或同时缺失
//   - Handler：结果回调
//   - Once：包装 Handler，保证最多触发一次
//   - Future：可等待的单次赋值结果
//
// 用于跨越不可信的外部组件（如分布式计数器）完成非阻塞调用：
// 调用方注册回调后立即返回，组件在任意 goroutine 上完成回调。
//
//	fut := xasync.NewFuture[bool]()
//	component.Accept(ctx, key, period, limit, fut.Complete)
//	ok, err := fut.Wait(ctx)
package xasync
