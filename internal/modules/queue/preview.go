package queue

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"github.com/content-machine/core/internal/models"
)

var previewEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Strikethrough,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// RenderPreview builds a review-dashboard HTML page for one queued pack.
func RenderPreview(item *models.ContentItemModel) (string, error) {
	var md strings.Builder

	fmt.Fprintf(&md, "# %s\n\n", item.Topic)
	fmt.Fprintf(&md, "**Source:** %s  \n", item.Source)
	if item.SourceURL != "" {
		fmt.Fprintf(&md, "**Link:** %s  \n", item.SourceURL)
	}
	fmt.Fprintf(&md, "**Status:** %s · **Quality:** %.1f\n\n", item.Status, item.QualityScore)

	writeSlot(&md, "Pro", item.Pro)
	writeSlot(&md, "Work", item.Work)
	writeSlot(&md, "Degen", item.Degen)

	if item.EngagementNotes != "" {
		fmt.Fprintf(&md, "## Engagement notes\n\n%s\n", item.EngagementNotes)
	}

	var out bytes.Buffer
	if err := previewEngine.Convert([]byte(md.String()), &out); err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}

	page := fmt.Sprintf(
		"<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%s</title></head><body>%s</body></html>",
		template.HTMLEscapeString(item.Topic), out.String())
	return page, nil
}

func writeSlot(md *strings.Builder, name string, slot models.PersonaSlot) {
	if slot.Content == "" && len(slot.ThreadParts) == 0 {
		return
	}
	fmt.Fprintf(md, "## %s\n\n", name)
	if slot.IsThread && len(slot.ThreadParts) > 0 {
		for i, part := range slot.ThreadParts {
			fmt.Fprintf(md, "%d. %s\n", i+1, part)
		}
		md.WriteString("\n")
	} else if slot.Content != "" {
		fmt.Fprintf(md, "%s\n\n", slot.Content)
	}
	if slot.ImagePrompt != "" {
		fmt.Fprintf(md, "> image: %s\n\n", slot.ImagePrompt)
	}
}
