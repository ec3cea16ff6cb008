package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/herbalshop/internal/datamodels/order"
	"github.com/example/herbalshop/internal/datamodels/product"
)

var (
	// ErrNotFound 实体不存在
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition 当前状态不允许请求的变更
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrConflict 状态已被并发请求修改，或与调用方期望的当前状态不符
	ErrConflict = errors.New("status conflict")
	// ErrInvalidInput 请求参数不合法
	ErrInvalidInput = errors.New("invalid input")
)

// repoErr 把仓储层错误映射为服务层错误
func repoErr(err error, what string, id int64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	case errors.Is(err, order.ErrStatusChanged), errors.Is(err, product.ErrStatusChanged):
		return fmt.Errorf("%s %d: %w", what, id, ErrConflict)
	default:
		return fmt.Errorf("%s %d: %w", what, id, err)
	}
}

// errKind 监控用的错误分类
func errKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
