// Package xpool 提供泛型 worker pool。
//
// 固定数量的 worker 从有界队列中取任务执行；队列满或 pool 已停止时
// Submit 立即返回错误，不阻塞调用方。handler 的 panic 会被恢复并记录日志，
// 不影响其他任务。Stop 会等待队列中剩余任务执行完毕。
package xpool
