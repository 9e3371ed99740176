package telemetry

import (
	"github.com/gin-gonic/gin"

	"github.com/content-machine/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/telemetry")
	g.GET("/runs/:id", h.runSummary)
}

func (h *Handler) runSummary(c *gin.Context) {
	summary, err := h.svc.Summarize(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, summary)
}
