package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVariablesOrderAndDedup(t *testing.T) {
	content := "Hi {{name}}, your {{bank}} package for {{name}} is ready."
	assert.Equal(t, []string{"name", "bank"}, ExtractVariables(content))
}

func TestExtractVariablesNoPlaceholders(t *testing.T) {
	assert.Equal(t, []string{}, ExtractVariables("plain text, no placeholders"))
}

func TestRenderSubstitutesAllBoundVariables(t *testing.T) {
	service := serviceTemplate{}
	out := service.Render("Hi {{name}}, {{bank}} rates dropped.", map[string]string{
		"name": "Sarah",
		"bank": "DBS",
	})
	assert.Equal(t, "Hi Sarah, DBS rates dropped.", out)
	assert.NotContains(t, out, "{{")
}

func TestRenderLeavesUnboundPlaceholders(t *testing.T) {
	service := serviceTemplate{}
	out := service.Render("Hi {{name}}, from {{team}}.", map[string]string{"name": "Sarah"})
	assert.Equal(t, "Hi Sarah, from {{team}}.", out)
}

func TestRenderIgnoresSingleBraces(t *testing.T) {
	service := serviceTemplate{}
	out := service.Render("Broadcast body keeps {name} as-is.", map[string]string{"name": "Sarah"})
	assert.Equal(t, "Broadcast body keeps {name} as-is.", out)
}
