package exercise

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lingokit/core/internal/middleware"
	"github.com/lingokit/core/internal/pkg/pagination"
	"github.com/lingokit/core/internal/pkg/response"
	"github.com/lingokit/core/internal/pkg/taskqueue"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	exercises := rg.Group("/exercises", auth)
	{
		exercises.GET("", h.list)
		exercises.GET("/:id", h.get)
	}
	tasks := rg.Group("/tasks", auth)
	{
		tasks.GET("", h.listTasks)
		tasks.GET("/:id", h.getTask)
	}
}

func (h *Handler) list(c *gin.Context) {
	userID := c.GetString(middleware.ContextKeyUserID)
	withAnswers := c.Query("answers") == "1"

	items, page, err := h.service.List(c.Request.Context(), userID, pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}

	views := make([]exerciseView, 0, len(items))
	for _, item := range items {
		v := exerciseView{
			ID:        item.ID,
			ConceptID: item.ConceptID,
			Prompt:    item.Prompt,
			Hint:      item.Hint,
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		}
		if withAnswers {
			v.Answer = item.Answer
		}
		views = append(views, v)
	}
	response.Paged(c, views, page)
}

func (h *Handler) get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.GetString(middleware.ContextKeyUserID), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if item == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, exerciseView{
		ID:        item.ID,
		ConceptID: item.ConceptID,
		Prompt:    item.Prompt,
		Answer:    item.Answer,
		Hint:      item.Hint,
		CreatedAt: item.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) listTasks(c *gin.Context) {
	q := pagination.FromContext(c)

	var typePtr *string
	if t := c.Query("type"); t != "" {
		typePtr = &t
	}
	var statusPtr *taskqueue.TaskStatus
	if st := c.Query("status"); st != "" {
		s := taskqueue.TaskStatus(st)
		statusPtr = &s
	}

	tasks, total, err := h.service.tasks.List(c.Request.Context(), q.Page, q.Size, typePtr, statusPtr)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	totalPages := int((total + int64(q.Size) - 1) / int64(q.Size))
	response.Paged(c, tasks, response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPages,
		Size:        q.Size,
		HasNextPage: q.Page < totalPages,
	})
}

func (h *Handler) getTask(c *gin.Context) {
	task, err := h.service.tasks.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}
