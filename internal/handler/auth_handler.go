package handler

import (
	"net/http"

	"board-ai-go/internal/middleware"
	"board-ai-go/internal/service"
	"board-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AuthHandler 负责处理注册、登录以及当前用户相关的 API 请求。
type AuthHandler struct {
	userService service.UserService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(userService service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// Register 处理用户注册请求。组织不存在时会自动创建。
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	// 绑定并验证 JSON 请求体
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Register: Invalid request payload, error: %v", err)
		badRequest(c, "email, password and organization_name are required")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Register", err)
		return
	}

	log.Infof("User '%s' registered successfully", user.Email)
	c.JSON(http.StatusCreated, user)
}

// Token 处理表单登录（username 为邮箱），成功时返回 bearer token。
func (h *AuthHandler) Token(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		log.Warnf("Token: missing username or password")
		badRequest(c, "username and password are required")
		return
	}

	tok, err := h.userService.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		respondError(c, "Token", err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

// Me 返回当前登录用户。
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// Organization 返回当前用户所属的组织。
func (h *AuthHandler) Organization(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	org, err := h.userService.ResolveOrganization(c.Request.Context(), user)
	if err != nil {
		respondError(c, "Organization", err)
		return
	}
	c.JSON(http.StatusOK, org)
}

// Logout 吊销当前请求携带的 token。
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenString := c.GetString(middleware.ContextTokenKey)
	if err := h.userService.Logout(c.Request.Context(), tokenString); err != nil {
		respondError(c, "Logout", err)
		return
	}
	log.Info("User logged out successfully")
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
