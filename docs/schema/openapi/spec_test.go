package openapi

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSpecReturnsCopyAndMatchesFile(t *testing.T) {
	want, err := os.ReadFile("catalog.yaml")
	require.NoError(t, err)

	spec := Spec()
	require.NotEmpty(t, spec)
	assert.Equal(t, want, spec)

	spec[0] ^= 0xFF
	assert.False(t, bytes.Equal(spec, CatalogSpec), "Spec did not return a copy")
	assert.Equal(t, want, Spec())
}

func TestSpecParsesAsOpenAPI(t *testing.T) {
	var doc struct {
		OpenAPI string                    `yaml:"openapi"`
		Paths   map[string]map[string]any `yaml:"paths"`
	}
	require.NoError(t, yaml.Unmarshal(CatalogSpec, &doc))
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Contains(t, doc.Paths, "/producers/{id}")
	assert.Contains(t, doc.Paths["/cheeses/{id}"], "patch")
}
