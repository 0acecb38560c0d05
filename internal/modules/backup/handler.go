package backup

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

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
	g := rg.Group("/backups", auth)
	{
		g.GET("", h.list)
		g.GET("/new", h.createAndDownload)
		g.GET("/:filename", h.download)
		g.POST("/rollback", h.uploadAndRestore)
		g.PATCH("/:filename", h.rollback)
		g.DELETE("", h.delete)
	}
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.service.List()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) createAndDownload(c *gin.Context) {
	filename, err := h.service.Create(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	data, err := h.service.Read(filename)
	if err != nil || data == nil {
		response.InternalError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/zip", data)
}

func (h *Handler) download(c *gin.Context) {
	filename := c.Param("filename")
	if !strings.HasSuffix(filename, ".zip") {
		response.BadRequest(c, "invalid filename")
		return
	}
	data, err := h.service.Read(filename)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if data == nil {
		response.NotFound(c)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/zip", data)
}

func (h *Handler) uploadAndRestore(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	src, err := file.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.restore(c, data)
}

func (h *Handler) rollback(c *gin.Context) {
	data, err := h.service.Read(c.Param("filename"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if data == nil {
		response.NotFound(c)
		return
	}
	h.restore(c, data)
}

func (h *Handler) restore(c *gin.Context, data []byte) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		response.BadRequest(c, "invalid zip file")
		return
	}
	if err := h.service.Restore(c.Request.Context(), zr); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "restore successful"})
}

func (h *Handler) delete(c *gin.Context) {
	files := strings.TrimSpace(c.Query("files"))
	if files == "" {
		var body struct {
			Files string `json:"files"`
		}
		_ = c.ShouldBindJSON(&body)
		files = strings.TrimSpace(body.Files)
	}
	if files == "" {
		response.BadRequest(c, "missing files")
		return
	}
	h.service.Delete(strings.Split(files, ","))
	response.NoContent(c)
}
