// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"fmt"

	"board-ai-go/internal/repository"
)

// 业务错误分类，handler 层据此映射 HTTP 状态码；其他错误一律视为内部错误。
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// notFound 将仓储层的记录不存在错误转换为 ErrNotFound，其他错误原样返回。
// 不存在和属于其他组织返回同样的信息。
func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s not found", ErrNotFound, what)
	}
	return err
}
