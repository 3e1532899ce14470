// Package testutil provides test helpers that enforce package layering:
// leaf packages (catalog, integrity, semaphore, backup, report, notify) must
// not reach up into the run driver or the CLI.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ModulePath is the import path prefix of this module.
const ModulePath = "github.com/MurrLabGEDEV/HiTransMeth"

// AssertNoDirectImports scans all non-test .go files in dir (typically "." from within the package)
// and fails if any import path satisfies the forbidden predicate. It does not follow build tags.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfDirectViolations(t, reason, viols)
}

// ModuleImportForbidden returns a predicate matching module packages under any
// of the given module-relative paths, e.g. "internal/core".
func ModuleImportForbidden(rels ...string) func(string) bool {
	return func(path string) bool {
		rest, ok := strings.CutPrefix(path, ModulePath+"/")
		if !ok {
			return false
		}
		for _, rel := range rels {
			if rest == rel || strings.HasPrefix(rest, rel+"/") {
				return true
			}
		}
		return false
	}
}

// LeafImportForbidden matches the driver layers no leaf package may import.
var LeafImportForbidden = ModuleImportForbidden("internal/core", "internal/config", "cmd", "internal/infra")

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		fileAst, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range fileAst.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfDirectViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden direct imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
