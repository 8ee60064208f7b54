package entitymodel

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cheeseshop/docs/schema/openapi"
)

func TestOpenAPISpecReturnsCopy(t *testing.T) {
	spec := OpenAPISpec()
	require.NotEmpty(t, spec)
	spec[0] ^= 0xFF
	assert.Equal(t, openapi.CatalogSpec, OpenAPISpec())
}

func TestNewOpenAPIHandlerServesEmbeddedSpec(t *testing.T) {
	rec := httptest.NewRecorder()
	NewOpenAPIHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Equal(t, openapi.CatalogSpec, rec.Body.Bytes())
}
