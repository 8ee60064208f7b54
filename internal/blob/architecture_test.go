package blob

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestInfraBlobImportsStayBehindFactory fails when a package outside
// internal/blob reaches into internal/infra/blob instead of going through
// Open and the Store interface.
func TestInfraBlobImportsStayBehindFactory(t *testing.T) {
	if testing.Short() {
		t.Skip("loads the whole module")
	}
	const (
		infra   = "cheeseshop/internal/infra/blob"
		factory = "cheeseshop/internal/blob"
	)
	pkgs, err := packages.Load(&packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}, "cheeseshop/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	violations := map[string]struct{}{}
	for _, pkg := range pkgs {
		if within(pkg.PkgPath, factory) || within(pkg.PkgPath, infra) {
			continue
		}
		for importPath := range pkg.Imports {
			if within(importPath, infra) {
				violations[pkg.PkgPath+" -> "+importPath] = struct{}{}
			}
		}
	}
	if len(violations) == 0 {
		return
	}
	list := make([]string, 0, len(violations))
	for v := range violations {
		list = append(list, v)
	}
	sort.Strings(list)
	t.Fatalf("infra blob packages imported outside %s:\n%s", factory, strings.Join(list, "\n"))
}

func within(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
