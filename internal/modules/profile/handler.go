package profile

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lingokit/core/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	profiles := rg.Group("/profiles", auth)
	{
		profiles.GET("/:userId", h.getProfile)
		profiles.PATCH("/:userId/proficiency", h.updateProficiency)
		profiles.DELETE("/:userId", h.deleteProfile)
	}
}

func (h *Handler) getProfile(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, profileView{
		UserID:           p.UserID,
		Proficiency:      p.Proficiency,
		NativeLanguage:   p.NativeLanguage,
		RecentErrors:     p.RecentErrors,
		SessionSummaries: p.SessionSummaries,
		TouchedAt:        p.TouchedAt.Format(time.RFC3339),
	})
}

func (h *Handler) updateProficiency(c *gin.Context) {
	var dto updateProficiencyDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.service.UpdateProficiency(c.Request.Context(), c.Param("userId"), dto.Proficiency); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) deleteProfile(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("userId")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
