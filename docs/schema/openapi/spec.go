// Package openapi embeds the catalog API description for runtime distribution.
package openapi

import _ "embed"

// CatalogSpec is the OpenAPI 3 document for the HTTP catalog API.
//
//go:embed catalog.yaml
var CatalogSpec []byte

// Spec returns a copy of the embedded catalog OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), CatalogSpec...)
}
