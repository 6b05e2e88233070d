// Package xmetrics 提供统一的可观测性接口（metrics + tracing）。
//
// 业务代码只依赖 Observer/Span/Attr；默认实现基于 OpenTelemetry。
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xlimit",
//		Operation: "increment",
//		Kind:      xmetrics.KindClient,
//	})
//	defer func() { span.End(xmetrics.Result{Err: err}) }()
//
// # 指标命名
//
//   - xgate.operation.total
//   - xgate.operation.duration
//
// 统一属性：component / operation / status。
// status 取值 ok / rejected / error，其中 rejected 表示业务拒绝（如限流），不计为错误。
package xmetrics
