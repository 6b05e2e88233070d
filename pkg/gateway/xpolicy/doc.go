// Package xpolicy 定义网关策略执行管线的核心模型。
//
// # 三种终态
//
// 每次策略评估恰好产生一个终态 Outcome：
//   - Apply: 放行，请求原样交给下一阶段
//   - Fail:  策略拒绝（面向客户端），携带不可变的 PolicyFailure
//   - Error: 系统故障（面向服务端），携带 error
//
// Chain 只接受第一次完成，后续调用被丢弃并计数，
// 因此"一个都不调用"之外的违约在结构上不可能发生。
// Pipeline 通过 Settle.Wait 等待终态，把"一个都不调用"转化为 ctx 超时。
//
// # 使用示例
//
//	p := xpolicy.NewPipeline(xpolicy.WithLogger(logger))
//	p.Use("rate-limiting", rateLimitPolicy)
//	out, err := p.Evaluate(ctx, req)
//	if err != nil {
//	    return err // ctx 取消或超时
//	}
//	switch out.Kind() {
//	case xpolicy.KindApply:
//	case xpolicy.KindFail:
//	    // out.Failure().Code()
//	case xpolicy.KindError:
//	    // out.Err()
//	}
package xpolicy
