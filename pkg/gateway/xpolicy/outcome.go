package xpolicy

import "strconv"

// Kind 终态类型。零值不是合法终态。
type Kind int

const (
	KindApply Kind = iota + 1
	KindFail
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindApply:
		return "apply"
	case KindFail:
		return "fail"
	case KindError:
		return "error"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Outcome 一次评估的终态，恰好携带与 Kind 对应的一个载荷。
type Outcome struct {
	kind    Kind
	request *Request
	failure PolicyFailure
	err     error
}

// Applied 放行终态。
func Applied(req *Request) Outcome {
	return Outcome{kind: KindApply, request: req}
}

// Failed 策略拒绝终态。
func Failed(f PolicyFailure) Outcome {
	return Outcome{kind: KindFail, failure: f}
}

// Errored 系统故障终态，nil 被替换为 ErrNilChainError。
func Errored(err error) Outcome {
	if err == nil {
		err = ErrNilChainError
	}
	return Outcome{kind: KindError, err: err}
}

func (o Outcome) Kind() Kind { return o.kind }

// Request 返回放行的请求，非 Apply 时为 nil。
func (o Outcome) Request() *Request { return o.request }

// Failure 返回策略拒绝，非 Fail 时为零值。
func (o Outcome) Failure() PolicyFailure { return o.failure }

// Err 返回系统故障，非 Error 时为 nil。
func (o Outcome) Err() error { return o.err }

// IsZero 报告 o 是否为未赋值的零值。
func (o Outcome) IsZero() bool { return o.kind == 0 }
