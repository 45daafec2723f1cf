package repository

import "errors"

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrDuplicate 违反唯一约束，开关类操作据此判断并发冲突
	ErrDuplicate = errors.New("违反唯一约束")
)
