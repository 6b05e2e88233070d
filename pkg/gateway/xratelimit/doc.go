// Package xratelimit 实现网关的限流策略。
//
// 策略从请求与订阅关系推导计数桶标识，把配置周期映射到固定窗口，
// 然后异步询问 RateLimiter 是否放行：
//
//	User        {apiKey}||USER||{app.org}||{app.id}||{header}
//	Application {apiKey}||APP||{app.org}||{app.id}
//	Service     {apiKey}||SERVICE||{svc.org}||{svc.id}
//
// Granularity 为 User 但请求缺少 UserHeader 时直接以
// NO_USER_FOR_RATE_LIMITING 失败，不访问限流器。
// 限流器回调 true 时放行原请求，false 时以 RATE_LIMIT_EXCEEDED 失败，
// 回调错误时以 Error 终止。
//
// # 使用示例
//
//	limiter, _ := xlimit.New(backend)
//	policy, err := xratelimit.New(xratelimit.Config{
//	    Limit:       100,
//	    Granularity: xratelimit.GranularityApplication,
//	    Period:      xratelimit.PeriodMinute,
//	}, limiter, xpolicy.DefaultFailureFactory{})
//	pipeline.Use("rate-limiting", policy)
package xratelimit
