package knowledge

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lingokit/core/internal/models"
	"github.com/lingokit/core/internal/pkg/pagination"
	"github.com/lingokit/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/concepts")
	g.GET("", h.listConcepts)
	g.GET("/:id", h.getConcept)
	g.GET("/:id/expand", h.expandConcept)

	admin := rg.Group("/concepts", authMW)
	admin.POST("", h.createConcept)
	admin.PATCH("/:id", h.updateConcept)
	admin.DELETE("/:id", h.deleteConcept)

	edges := rg.Group("/concept-edges")
	edges.GET("", h.listEdges)

	edgesAdmin := rg.Group("/concept-edges", authMW)
	edgesAdmin.POST("", h.createEdge)
	edgesAdmin.DELETE("/:id", h.deleteEdge)
}

// GET /concepts?type=...&level=...
func (h *Handler) listConcepts(c *gin.Context) {
	q := pagination.FromContext(c)

	var typePtr *models.ConceptType
	if raw := c.Query("type"); raw != "" {
		t := models.ConceptType(raw)
		typePtr = &t
	}

	items, pag, err := h.svc.ListConcepts(q, typePtr, c.Query("level"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// GET /concepts/:id
func (h *Handler) getConcept(c *gin.Context) {
	concept, err := h.svc.GetConcept(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if concept == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, concept)
}

// GET /concepts/:id/expand?hops=2
func (h *Handler) expandConcept(c *gin.Context) {
	hops := 1
	if c.Query("hops") == "2" {
		hops = 2
	}
	concepts, err := h.svc.Expand(c.Request.Context(), []string{c.Param("id")}, hops)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, concepts)
}

// POST /concepts  [auth]
func (h *Handler) createConcept(c *gin.Context) {
	var dto CreateConceptDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	dto.ID = strings.TrimSpace(dto.ID)

	concept, err := h.svc.CreateConcept(&dto)
	if err != nil {
		switch {
		case errors.Is(err, errDuplicateConcept):
			response.Conflict(c, err.Error())
		case errors.Is(err, errBadConceptType):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, concept)
}

// PATCH /concepts/:id  [auth]
func (h *Handler) updateConcept(c *gin.Context) {
	var dto UpdateConceptDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	concept, err := h.svc.UpdateConcept(c.Param("id"), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if concept == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, concept)
}

// DELETE /concepts/:id  [auth]
func (h *Handler) deleteConcept(c *gin.Context) {
	if err := h.svc.DeleteConcept(c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// GET /concept-edges?concept=...
func (h *Handler) listEdges(c *gin.Context) {
	q := pagination.FromContext(c)
	items, pag, err := h.svc.ListEdges(q, c.Query("concept"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// POST /concept-edges  [auth]
func (h *Handler) createEdge(c *gin.Context) {
	var dto CreateEdgeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	edge, err := h.svc.CreateEdge(&dto)
	if err != nil {
		switch {
		case errors.Is(err, errDuplicateEdge):
			response.Conflict(c, err.Error())
		case errors.Is(err, errUnknownConcept), errors.Is(err, errBadRelation), errors.Is(err, errSelfEdge):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, edge)
}

// DELETE /concept-edges/:id  [auth]
func (h *Handler) deleteEdge(c *gin.Context) {
	if err := h.svc.DeleteEdge(c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
