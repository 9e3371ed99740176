package queue

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/content-machine/core/internal/models"
	"github.com/content-machine/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/queue")
	g.GET("/pending", h.pending)
	g.GET("/stats", h.stats)
	g.GET("/:id", h.get)
	g.GET("/:id/preview", h.preview)
	g.POST("/:id/approve", h.approve)
	g.POST("/:id/reject", h.reject)
	g.POST("/expire", h.expire)
}

func (h *Handler) pending(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	items, err := h.svc.Pending(limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.svc.Stats()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, stats)
}

func (h *Handler) get(c *gin.Context) {
	item, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, item)
}

func (h *Handler) preview(c *gin.Context) {
	item, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}

	page, err := RenderPreview(item)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *Handler) approve(c *gin.Context) {
	h.updateStatus(c, models.StatusApproved)
}

func (h *Handler) reject(c *gin.Context) {
	h.updateStatus(c, models.StatusRejected)
}

func (h *Handler) updateStatus(c *gin.Context, status models.ContentStatus) {
	id := c.Param("id")
	if err := h.svc.UpdateStatus(id, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	item, err := h.svc.GetByID(id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, item)
}

type expireDTO struct {
	Hours int `json:"hours"`
}

func (h *Handler) expire(c *gin.Context) {
	dto := expireDTO{Hours: 48}
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, "invalid body: "+err.Error())
			return
		}
	}
	if dto.Hours < 1 {
		response.BadRequest(c, "hours must be >= 1")
		return
	}

	expired, err := h.svc.ExpireOldPending(time.Duration(dto.Hours) * time.Hour)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"expired": expired})
}
