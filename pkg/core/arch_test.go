package core_test

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"
)

// TestCoreImportsOnlyStdlib keeps pkg/core free of third-party and internal
// packages so every layer can depend on it.
func TestCoreImportsOnlyStdlib(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}

	fset := token.NewFileSet()
	for _, path := range files {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			t.Errorf("failed to parse %s: %v", path, err)
			continue
		}
		for _, imp := range f.Imports {
			importPath := strings.Trim(imp.Path.Value, `"`)
			switch {
			case strings.Contains(importPath, "/internal/"):
				t.Errorf("%s imports internal package %s", path, importPath)
			case strings.Contains(importPath, "."):
				// stdlib paths have no dot in their first element
				t.Errorf("%s imports non-stdlib package %s", path, importPath)
			}
		}
	}
}
