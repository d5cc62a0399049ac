package handler

import (
	"net/http"
	"strconv"

	"board-ai-go/internal/service"
	"board-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了搜索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search 在当前组织的文档中做全文检索。
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		log.Warnf("[SearchHandler] 搜索请求失败: q 参数为空")
		badRequest(c, "q is required")
		return
	}
	// 非法的 limit 交给 service 使用默认值
	limit, _ := strconv.Atoi(c.Query("limit"))

	user, ok := currentUser(c)
	if !ok {
		return
	}

	results, err := h.searchService.Search(c.Request.Context(), user.OrganizationID, query, limit)
	if err != nil {
		respondError(c, "Search", err)
		return
	}
	log.Infof("[SearchHandler] 搜索成功, query: '%s', 返回 %d 条结果", query, len(results))
	c.JSON(http.StatusOK, results)
}
