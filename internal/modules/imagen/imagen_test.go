package imagen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStylesPersona(t *testing.T) {
	gen := NewGenerator()

	prompt := gen.Generate("funding rate heatmap", "work")
	assert.Equal(t, "work", prompt.Persona)
	assert.Equal(t, "funding rate heatmap", prompt.BasePrompt)
	assert.True(t, strings.HasPrefix(prompt.CopyPastePrompt, "funding rate heatmap, dark mode trading terminal"))
	assert.Contains(t, prompt.CopyPastePrompt, "no text no words no letters")
}

func TestGenerateUnknownPersonaFallsBackToPro(t *testing.T) {
	gen := NewGenerator()

	prompt := gen.Generate("macro chart", "intern")
	assert.Contains(t, prompt.CopyPastePrompt, "clean privacy-tech data visualization")
}

func TestGenerateEmptyBaseUsesAbstractDefault(t *testing.T) {
	gen := NewGenerator()

	prompt := gen.Generate("", "degen")
	assert.Equal(t, "Abstract degen aesthetic visualization", prompt.BasePrompt)
	assert.Contains(t, prompt.CopyPastePrompt, "cyberpunk glitch art")
}

func TestGenerateAll(t *testing.T) {
	gen := NewGenerator()

	pro := "encrypted data streams over a city"
	degen := "melting candles"
	prompts := gen.GenerateAll(map[string]*string{
		"pro":   &pro,
		"work":  nil,
		"degen": &degen,
	})

	require.Len(t, prompts, 3)
	require.NotNil(t, prompts["pro"])
	assert.Equal(t, "encrypted data streams over a city", prompts["pro"].BasePrompt)
	require.NotNil(t, prompts["degen"])
	assert.Nil(t, prompts["work"])
}
