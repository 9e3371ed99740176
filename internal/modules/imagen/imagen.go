// Package imagen renders copy-paste image prompts per persona aesthetic.
package imagen

import "strings"

// Personas lists the slots every content pack carries, in output order.
var Personas = []string{"pro", "work", "degen"}

// Prompt is one ready-to-paste image generation prompt.
type Prompt struct {
	Persona         string `json:"persona"`
	BasePrompt      string `json:"base_prompt"`
	CopyPastePrompt string `json:"copy_paste_prompt"`
}

type style struct {
	look     string
	colors   string
	elements string
	avoid    string
}

var styles = map[string]style{
	"pro": {
		look:     "clean privacy-tech data visualization",
		colors:   "deep blue, teal, white, gold accents",
		elements: "privacy shields, encrypted data streams, macro charts, ZK motifs, subtle glow effects",
		avoid:    "cartoon, neon, chaos, any text or words or letters",
	},
	"work": {
		look:     "dark mode trading terminal",
		colors:   "black background, neon green, cyan, red accents",
		elements: "candlestick charts, data streams, price indicators, order book",
		avoid:    "daylight, cartoon, corporate, any text or words or letters",
	},
	"degen": {
		look:     "cyberpunk glitch art",
		colors:   "neon pink, purple, cyan, vaporwave palette",
		elements: "glitch effects, pixel corruption, VHS distortion, ASCII art",
		avoid:    "corporate, clean, realistic, any text or words or letters",
	},
}

type Generator struct{}

func NewGenerator() *Generator { return &Generator{} }

// Generate styles a base prompt for one persona. Unknown personas fall back
// to the pro aesthetic; an empty base gets an abstract default.
func (g *Generator) Generate(basePrompt, persona string) Prompt {
	if basePrompt == "" {
		basePrompt = "Abstract " + persona + " aesthetic visualization"
	}

	st, ok := styles[persona]
	if !ok {
		st = styles["pro"]
	}

	copyPaste := strings.Join([]string{
		basePrompt,
		st.look,
		st.colors,
		st.elements,
		"16:9 aspect ratio",
		"high quality digital art",
		"no text no words no letters",
	}, ", ")

	return Prompt{
		Persona:         persona,
		BasePrompt:      basePrompt,
		CopyPastePrompt: copyPaste,
	}
}

// GenerateAll styles the base prompts of every known persona slot. Slots
// without a base prompt map to nil.
func (g *Generator) GenerateAll(basePrompts map[string]*string) map[string]*Prompt {
	out := make(map[string]*Prompt, len(Personas))
	for _, persona := range Personas {
		base := basePrompts[persona]
		if base == nil || *base == "" {
			out[persona] = nil
			continue
		}
		prompt := g.Generate(*base, persona)
		out[persona] = &prompt
	}
	return out
}
