package pipeline

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/lingokit/core/internal/pkg/response"
)

type turnDTO struct {
	UserID    string `json:"user_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

type warmupDTO struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the learner-facing chat endpoints. The upstream
// gateway authenticates learners, so the turn carries the user id in the
// body instead of a JWT claim.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	chat := rg.Group("/chat")
	{
		chat.POST("/turn", h.turn)
		chat.POST("/warmup", h.warmup)
	}
}

func (h *Handler) turn(c *gin.Context) {
	var dto turnDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.HandleTurn(c.Request.Context(), TurnInput{
		UserID:        dto.UserID,
		SessionID:     dto.SessionID,
		Message:       dto.Text,
		ModelOverride: dto.Model,
	})
	if err != nil {
		if errors.Is(err, errEmptyMessage) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *Handler) warmup(c *gin.Context) {
	var dto warmupDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	n, err := h.service.WarmUp(c.Request.Context(), dto.UserID, dto.SessionID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"warmed": n})
}
