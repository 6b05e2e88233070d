package xasync

import "errors"

// ErrNilError 表示使用 nil 错误构造失败结果。
// Error(nil) 会被归一化为该错误，确保结果不可能"既无值也无错"。
var ErrNilError = errors.New("xasync: nil error in failed result")

// Result 异步操作结果，值与错误二选一。
// 零值表示值为 T 零值的成功结果。
type Result[T any] struct {
	value T
	err   error
}

// Value 创建成功结果。
func Value[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Error 创建失败结果。
func Error[T any](err error) Result[T] {
	if err == nil {
		err = ErrNilError
	}
	return Result[T]{err: err}
}

// From 根据 (v, err) 创建结果，err 非 nil 时忽略 v。
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Error[T](err)
	}
	return Value(v)
}

// IsError 是否为失败结果。
func (r Result[T]) IsError() bool {
	return r.err != nil
}

// IsSuccess 是否为成功结果。
func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

// Value 返回结果值，失败结果返回 T 零值。
func (r Result[T]) Value() T {
	return r.value
}

// Err 返回错误，成功结果返回 nil。
func (r Result[T]) Err() error {
	return r.err
}

// Get 以 (value, error) 形式返回结果。
func (r Result[T]) Get() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}
