package entitymodel

import "cheeseshop/docs/schema"

// Version returns the catalog API version, or "" if the document is unreadable.
func Version() string {
	info, err := schema.CatalogInfo()
	if err != nil {
		return ""
	}
	return info.Version
}
