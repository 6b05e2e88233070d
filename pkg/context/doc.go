// Package context 提供上下文相关的子包。
//
// 子包列表：
//   - xctx: 追踪信息与请求 ID 的注入/提取
//
// 所有上下文信息通过 context.Context 传递，不使用全局变量。
package context
