package handler

import (
	"net/http"

	"board-ai-go/internal/service"
	"board-ai-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// PersonalityHandler 管理组织自定义的顾问人格。
type PersonalityHandler struct {
	personalityService service.PersonalityService
}

// NewPersonalityHandler 创建一个新的 PersonalityHandler 实例。
func NewPersonalityHandler(personalityService service.PersonalityService) *PersonalityHandler {
	return &PersonalityHandler{personalityService: personalityService}
}

func (h *PersonalityHandler) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.PersonalityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("CreatePersonality: Invalid request payload, error: %v", err)
		badRequest(c, "name and prompt_template are required")
		return
	}
	p, err := h.personalityService.Create(c.Request.Context(), user.OrganizationID, req)
	if err != nil {
		respondError(c, "CreatePersonality", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PersonalityHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.personalityService.List(c.Request.Context(), user.OrganizationID)
	if err != nil {
		respondError(c, "ListPersonalities", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *PersonalityHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.personalityService.Delete(c.Request.Context(), user.OrganizationID, id); err != nil {
		respondError(c, "DeletePersonality", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Personality deleted"})
}
