// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"board-ai-go/internal/model"
	"board-ai-go/internal/service"
	"board-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 上下文中保存的键。
const (
	ContextUserKey  = "user"
	ContextTokenKey = "token"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 bearer token 认证。
// 它会从请求头中提取 token，解析出用户，并将完整的 User 对象存入 Gin 的上下文中。
func AuthMiddleware(userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Token 以 "Bearer <token>" 的形式提供，scheme 不区分大小写
		authHeader := c.GetHeader("Authorization")
		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			AbortUnauthorized(c, "Not authenticated")
			return
		}
		tokenString = strings.TrimSpace(tokenString)

		user, err := userService.Resolve(c.Request.Context(), tokenString)
		if err != nil {
			if !errors.Is(err, service.ErrUnauthorized) {
				log.Error("解析 token 对应的用户失败", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "detail": "internal server error"})
				return
			}
			AbortUnauthorized(c, "Could not validate credentials")
			return
		}

		// 将完整的 User 对象存储在 context 中，供后续处理函数使用
		c.Set(ContextUserKey, user)
		c.Set(ContextTokenKey, tokenString)
		c.Next()
	}
}

// AbortUnauthorized 返回 401，并带上 WWW-Authenticate 头。
func AbortUnauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "detail": detail})
}

// CurrentUser 返回 AuthMiddleware 注入的用户。
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}
