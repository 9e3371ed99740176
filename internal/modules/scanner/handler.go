package scanner

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/content-machine/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/scanner")
	g.POST("/scan", h.scan)
}

func (h *Handler) scan(c *gin.Context) {
	maxItems := 0
	if raw := c.Query("max_items"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.BadRequest(c, "max_items must be a positive integer")
			return
		}
		maxItems = parsed
	}

	items, err := h.svc.ScanAll(c.Request.Context(), maxItems)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}
