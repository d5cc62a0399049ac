package handler

import (
	"net/http"
	"strconv"

	"board-ai-go/internal/service"
	"board-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ConversationIDHeader 携带本次分析创建的对话记录 ID。
const ConversationIDHeader = "X-Conversation-ID"

// AdvisorHandler 处理多顾问分析与角色查询。
type AdvisorHandler struct {
	analysis service.AnalysisService
	factory  *service.AdvisorFactory
}

// NewAdvisorHandler 创建一个新的 AdvisorHandler 实例。
func NewAdvisorHandler(analysis service.AnalysisService, factory *service.AdvisorFactory) *AdvisorHandler {
	return &AdvisorHandler{analysis: analysis, factory: factory}
}

// Analyze 校验请求后以 text/event-stream 流式返回各顾问的回答。
// 校验失败时返回普通的 JSON 错误；响应头一旦发出，后续错误只记录日志。
func (h *AdvisorHandler) Analyze(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Analyze: Invalid request payload, error: %v", err)
		badRequest(c, "invalid request payload")
		return
	}

	run, err := h.analysis.Prepare(c.Request.Context(), user.OrganizationID, req)
	if err != nil {
		respondError(c, "Analyze", err)
		return
	}

	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header(ConversationIDHeader, strconv.FormatUint(uint64(run.ConversationID), 10))
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	err = h.analysis.Stream(c.Request.Context(), run, func(fragment string) error {
		if _, err := c.Writer.WriteString(fragment); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		log.Errorf("[Analyze] 流式分析结束时出错, conversation_id=%d: %v", run.ConversationID, err)
	}
}

// Roles 列出当前组织可用的顾问角色。
func (h *AdvisorHandler) Roles(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roles, err := h.factory.Roles(c.Request.Context(), user.OrganizationID)
	if err != nil {
		respondError(c, "ListRoles", err)
		return
	}
	c.JSON(http.StatusOK, roles)
}
