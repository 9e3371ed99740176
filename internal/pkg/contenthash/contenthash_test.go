package contenthash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	a := Generate("Bitcoin ETF inflows hit a record")
	b := Generate("Bitcoin ETF inflows hit a record")
	c := Generate("Funding rates flip negative")

	assert.Len(t, a, Length)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGenerateEmpty(t *testing.T) {
	assert.Len(t, Generate(""), Length)
}
