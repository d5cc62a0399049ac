package handler

import (
	"encoding/json"
	"net/http"

	"board-ai-go/internal/metrics"
	"board-ai-go/internal/middleware"
	"board-ai-go/internal/model"
	"board-ai-go/internal/service"
	"board-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// wsFrame 是除文本片段外的控制帧。
type wsFrame struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id,omitempty"`
	Detail         string `json:"detail,omitempty"`
}

// AdvisorWSHandler 通过 WebSocket 提供多顾问分析。浏览器无法为 WebSocket 设置请求头，
// 所以 token 放在路径中。
type AdvisorWSHandler struct {
	analysis    service.AnalysisService
	userService service.UserService
	limiter     *middleware.OrgRateLimiter
}

// NewAdvisorWSHandler 创建一个新的 AdvisorWSHandler。limiter 为 nil 时不限流。
func NewAdvisorWSHandler(analysis service.AnalysisService, userService service.UserService, limiter *middleware.OrgRateLimiter) *AdvisorWSHandler {
	return &AdvisorWSHandler{analysis: analysis, userService: userService, limiter: limiter}
}

// Handle 处理一个传入的 WebSocket 连接。每条文本消息是一个分析请求，按顺序逐个处理。
func (h *AdvisorWSHandler) Handle(c *gin.Context) {
	user, err := h.userService.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, "AdvisorWS", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，用户: %s", user.Email)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}
		if err := h.runOne(c, conn, user, message); err != nil {
			log.Warnf("向 WebSocket 写入失败, 关闭连接: %v", err)
			return
		}
	}
}

// runOne 执行一次分析。只有写连接失败时返回错误。
func (h *AdvisorWSHandler) runOne(c *gin.Context, conn *websocket.Conn, user *model.User, message []byte) error {
	if h.limiter != nil && !h.limiter.Allow(user.OrganizationID) {
		metrics.RateLimitedTotal.Inc()
		return conn.WriteJSON(wsFrame{Type: "error", Detail: "rate limit exceeded"})
	}

	var req service.AnalyzeRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return conn.WriteJSON(wsFrame{Type: "error", Detail: "invalid request payload"})
	}

	ctx := c.Request.Context()
	run, err := h.analysis.Prepare(ctx, user.OrganizationID, req)
	if err != nil {
		return conn.WriteJSON(wsFrame{Type: "error", Detail: errorDetail(err)})
	}

	var writeErr error
	streamErr := h.analysis.Stream(ctx, run, func(fragment string) error {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(fragment)); err != nil {
			writeErr = err
			return err
		}
		return nil
	})
	if writeErr != nil {
		return writeErr
	}
	if streamErr != nil {
		log.Errorf("[AdvisorWS] 分析结束时出错, conversation_id=%d: %v", run.ConversationID, streamErr)
	}
	return conn.WriteJSON(wsFrame{Type: "completion", ConversationID: run.ConversationID})
}
