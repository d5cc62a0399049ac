// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"board-ai-go/internal/middleware"
	"board-ai-go/internal/model"
	"board-ai-go/internal/service"
	"board-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
)

var errorKinds = []struct {
	err    error
	status int
}{
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrBadRequest, http.StatusBadRequest},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrConflict, http.StatusConflict},
}

// classify 返回错误对应的 HTTP 状态码和可以展示给客户端的信息。
func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, strings.TrimPrefix(err.Error(), k.err.Error()+": ")
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// errorDetail 返回错误中可以展示给客户端的部分。
func errorDetail(err error) string {
	_, detail := classify(err)
	return detail
}

// respondError 将业务错误映射为 HTTP 状态码，响应体为 {"code", "detail"}。
// 未分类的错误一律返回 500，且不向客户端暴露内部信息。
func respondError(c *gin.Context, op string, err error) {
	status, detail := classify(err)
	switch status {
	case http.StatusInternalServerError:
		log.Errorf("[%s] 内部错误: %v", op, err)
	case http.StatusUnauthorized:
		log.Warnf("[%s] %v", op, err)
		middleware.AbortUnauthorized(c, detail)
		return
	default:
		log.Warnf("[%s] %v", op, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"code": status, "detail": detail})
}

func badRequest(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "detail": detail})
}

// currentUser 取出 AuthMiddleware 注入的用户；缺失说明路由没有挂认证中间件。
func currentUser(c *gin.Context) (*model.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		log.Errorf("[%s] 无法从 Gin 上下文中获取用户信息", c.FullPath())
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "detail": "internal server error"})
	}
	return user, ok
}

// parseID 解析路径参数中的正整数 ID。
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
