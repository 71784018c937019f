package logic

import (
	"errors"
	"fmt"
)

// 业务错误分类，handler 按 errors.Is 映射 HTTP 状态码
var (
	ErrValidation   = errors.New("参数错误")
	ErrInvariant    = errors.New("违反数据约束")
	ErrConflict     = errors.New("数据冲突")
	ErrNotPermitted = errors.New("不允许的操作")
	ErrNotFound     = errors.New("记录不存在")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func invariantf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
