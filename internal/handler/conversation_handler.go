package handler

import (
	"net/http"

	"board-ai-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理与对话记录相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// List 返回当前组织的对话记录，最新的在前。
func (h *ConversationHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	history, err := h.service.List(c.Request.Context(), user.OrganizationID)
	if err != nil {
		respondError(c, "ListConversations", err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *ConversationHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	conv, err := h.service.Get(c.Request.Context(), user.OrganizationID, id)
	if err != nil {
		respondError(c, "GetConversation", err)
		return
	}
	c.JSON(http.StatusOK, conv)
}
