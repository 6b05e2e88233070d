package xpolicy

import "errors"

var (
	// ErrNilChainError Chain.Error 收到 nil error 时记录的替代错误。
	ErrNilChainError = errors.New("xpolicy: chain error called with nil error")

	// ErrNilRequest 评估的请求为 nil。
	ErrNilRequest = errors.New("xpolicy: nil request")

	// ErrNilPolicy 注册的策略为 nil。
	ErrNilPolicy = errors.New("xpolicy: nil policy")

	// ErrPolicyPanic 策略执行时发生 panic。
	ErrPolicyPanic = errors.New("xpolicy: policy panicked")

	// ErrInvalidOutcome Apply 终态携带 nil 请求。
	ErrInvalidOutcome = errors.New("xpolicy: apply outcome without request")
)
