package types

import "errors"

// 错误分类。各层定义自己的哨兵错误并包装这里的某一个，
// 调用方用 errors.Is 判断类别。
var (
	ErrNotFound    = errors.New("not found")
	ErrLockTimeout = errors.New("lock timeout")
	ErrIOFailure   = errors.New("io failure")
	ErrValidation  = errors.New("validation failed")
)
