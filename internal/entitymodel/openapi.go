// Package entitymodel serves the catalog schema artifacts: the OpenAPI
// document and, through sqlbundle, the table DDL.
package entitymodel

import (
	"net/http"

	"cheeseshop/docs/schema/openapi"
)

// OpenAPISpec returns a copy of the embedded catalog OpenAPI YAML.
func OpenAPISpec() []byte {
	return openapi.Spec()
}

// NewOpenAPIHandler serves the embedded catalog OpenAPI YAML.
func NewOpenAPIHandler() http.Handler {
	spec := OpenAPISpec()
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(spec)
	})
}
