package domain

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// allowedThirdParty lists the only non-stdlib imports the domain layer may use.
var allowedThirdParty = map[string]bool{
	"github.com/shopspring/decimal": true,
}

// TestDomainImportsStayPure keeps the domain package free of cheeseshop
// internals and of any third-party module outside allowedThirdParty.
func TestDomainImportsStayPure(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	fset := token.NewFileSet()
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		src, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		f, err := parser.ParseFile(fset, name, src, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, spec := range f.Imports {
			path, _ := strconv.Unquote(spec.Path.Value)
			if isStdlib(path) || allowedThirdParty[path] {
				continue
			}
			t.Errorf("%s imports %s", name, path)
		}
	}
}

// isStdlib treats any path whose first element has no dot as standard library.
// The module path itself ("cheeseshop/...") is excluded explicitly.
func isStdlib(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return first != "cheeseshop" && !strings.Contains(first, ".")
}
