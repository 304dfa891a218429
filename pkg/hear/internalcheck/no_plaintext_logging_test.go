package internalcheck

import (
	"fmt"
	"go/ast"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestMaskEngineAndPRFNeverImportLogging guards an invariant the rest of
// the package can't express in its type signatures: the mask engine and
// the PRF kernel handle raw key, nonce, and element material, so they must
// never hold a logging.Logger or call into the logging package — any log
// line they could produce would be a channel for plaintext or key material
// to leak. The files enforced here are named explicitly rather than
// inferred, the same way the example pack's own constant-time check targets
// a fixed package rather than scanning everything.
var guardedFiles = []string{"mask.go", "prf.go"}

func TestMaskEngineAndPRFNeverImportLogging(t *testing.T) {
	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedFiles | packages.NeedName,
	}

	pkgs, err := packages.Load(cfg, "github.com/hearsys/hear-go/pkg/hear")
	if err != nil {
		t.Fatalf("load package: %v", err)
	}

	var findings []string

	for _, pkg := range pkgs {
		for i, file := range pkg.Syntax {
			filename := pkg.Fset.Position(file.Pos()).Filename
			if !matchesGuardedFile(filename) {
				continue
			}

			for _, imp := range file.Imports {
				path := strings.Trim(imp.Path.Value, `"`)
				if strings.HasSuffix(path, "pkg/hear/logging") {
					findings = append(findings, fmt.Sprintf("%s: must not import logging", filename))
				}
			}

			ast.Inspect(file, func(n ast.Node) bool {
				sel, ok := n.(*ast.SelectorExpr)
				if !ok {
					return true
				}
				ident, ok := sel.X.(*ast.Ident)
				if ok && ident.Name == "logging" {
					pos := pkg.Fset.Position(sel.Pos())
					findings = append(findings, fmt.Sprintf("%s: must not reference the logging package", pos))
				}
				return true
			})

			_ = i
		}
	}

	if len(findings) > 0 {
		t.Fatalf("plaintext-logging policy violation:\n%s", strings.Join(findings, "\n"))
	}
}

func matchesGuardedFile(path string) bool {
	for _, name := range guardedFiles {
		if strings.HasSuffix(path, "/"+name) || path == name {
			return true
		}
	}
	return false
}
