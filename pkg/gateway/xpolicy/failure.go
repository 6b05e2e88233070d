package xpolicy

import (
	"maps"
	"strconv"
)

// FailureType 策略失败的分类。
type FailureType int

const (
	FailureAuthentication FailureType = iota + 1
	FailureAuthorization
	FailureOther
)

func (t FailureType) String() string {
	switch t {
	case FailureAuthentication:
		return "Authentication"
	case FailureAuthorization:
		return "Authorization"
	case FailureOther:
		return "Other"
	default:
		return "FailureType(" + strconv.Itoa(int(t)) + ")"
	}
}

// FailureCode 失败码目录中的条目。
type FailureCode int

// 限流策略失败码，数值与既有网关保持一致。
const (
	RateLimitExceeded     FailureCode = 10005
	NoUserForRateLimiting FailureCode = 10006
)

func (c FailureCode) String() string {
	switch c {
	case RateLimitExceeded:
		return "RATE_LIMIT_EXCEEDED"
	case NoUserForRateLimiting:
		return "NO_USER_FOR_RATE_LIMITING"
	default:
		return strconv.Itoa(int(c))
	}
}

// PolicyFailure 策略拒绝，创建后不可修改。
type PolicyFailure struct {
	typ     FailureType
	code    FailureCode
	message string
	headers map[string]string
}

// NewPolicyFailure 创建 PolicyFailure。
func NewPolicyFailure(typ FailureType, code FailureCode, message string) PolicyFailure {
	return PolicyFailure{typ: typ, code: code, message: message}
}

// WithHeader 返回附加了响应头的副本，原值不变。
func (f PolicyFailure) WithHeader(name, value string) PolicyFailure {
	headers := make(map[string]string, len(f.headers)+1)
	maps.Copy(headers, f.headers)
	headers[name] = value
	f.headers = headers
	return f
}

func (f PolicyFailure) Type() FailureType { return f.typ }

func (f PolicyFailure) Code() FailureCode { return f.code }

func (f PolicyFailure) Message() string { return f.message }

// Headers 返回响应头的副本。
func (f PolicyFailure) Headers() map[string]string {
	return maps.Clone(f.headers)
}

func (f PolicyFailure) String() string {
	return f.code.String() + ": " + f.message
}

// FailureFactory 构造 PolicyFailure。
type FailureFactory interface {
	CreateFailure(typ FailureType, code FailureCode, message string) PolicyFailure
}

// FailureFactoryFunc 函数适配器。
type FailureFactoryFunc func(typ FailureType, code FailureCode, message string) PolicyFailure

// CreateFailure 调用 f。
func (f FailureFactoryFunc) CreateFailure(typ FailureType, code FailureCode, message string) PolicyFailure {
	return f(typ, code, message)
}

// DefaultFailureFactory 直接构造不带响应头的 PolicyFailure。
type DefaultFailureFactory struct{}

// CreateFailure 实现 FailureFactory。
func (DefaultFailureFactory) CreateFailure(typ FailureType, code FailureCode, message string) PolicyFailure {
	return NewPolicyFailure(typ, code, message)
}
