package pipeline

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/content-machine/core/internal/modules/persona"
	"github.com/content-machine/core/internal/modules/queue"
	"github.com/content-machine/core/internal/pkg/response"
)

// DryRunSource resolves the effective dry-run flag for requests that do not
// set one explicitly.
type DryRunSource interface {
	DryRun(ctx context.Context) bool
}

type Handler struct {
	svc     *Service
	runtime DryRunSource
}

func NewHandler(svc *Service, runtime DryRunSource) *Handler {
	return &Handler{svc: svc, runtime: runtime}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/pipeline")
	g.POST("/generate", h.generate)
}

type generateDTO struct {
	Topic       string         `json:"topic" binding:"required"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	Details     map[string]any `json:"details"`
	URL         string         `json:"url"`
	ContentHash string         `json:"content_hash"`
	Personas    []string       `json:"personas"`
	DryRun      *bool          `json:"dry_run"`
}

func (h *Handler) generate(c *gin.Context) {
	var dto generateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid body: "+err.Error())
		return
	}

	dryRun := h.runtime.DryRun(c.Request.Context())
	if dto.DryRun != nil {
		dryRun = *dto.DryRun
	}

	topic := TopicData{
		Topic:       dto.Topic,
		Type:        dto.Type,
		Source:      dto.Source,
		Details:     dto.Details,
		URL:         dto.URL,
		ContentHash: dto.ContentHash,
	}

	result, err := h.svc.Run(c.Request.Context(), topic, dto.Personas, dryRun)
	if err != nil {
		switch {
		case errors.Is(err, persona.ErrNotFound):
			response.BadRequest(c, err.Error())
		case errors.Is(err, queue.ErrDuplicate):
			response.Conflict(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, result)
}
