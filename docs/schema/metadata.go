// Package schema exposes metadata from the embedded catalog API description.
package schema

import (
	"sync"

	"gopkg.in/yaml.v3"

	"cheeseshop/docs/schema/openapi"
)

// Info is the info block of the catalog OpenAPI document.
type Info struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

var (
	infoOnce sync.Once
	info     Info
	infoErr  error
)

// CatalogInfo returns the title and version declared in the OpenAPI document.
func CatalogInfo() (Info, error) {
	infoOnce.Do(func() {
		var doc struct {
			Info Info `yaml:"info"`
		}
		infoErr = yaml.Unmarshal(openapi.CatalogSpec, &doc)
		info = doc.Info
	})
	return info, infoErr
}
