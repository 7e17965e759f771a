// Package nopanic defines an analyzer that keeps library code from
// terminating the process: panic, os.Exit and log.Fatal* are reported
// everywhere except in package main and in test files.
package nopanic

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports calls that abort the process from non-main packages.
var Analyzer = &analysis.Analyzer{
	Name: "nopanic",
	Doc:  "prohibits panic, os.Exit and log.Fatal* outside package main",
	Run:  run,
}

var terminating = map[string]map[string]struct{}{
	"os":  {"Exit": {}},
	"log": {"Fatal": {}, "Fatalf": {}, "Fatalln": {}, "Panic": {}, "Panicf": {}, "Panicln": {}},
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() == "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) || strings.HasSuffix(filename, "_test.go") {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			switch fun := call.Fun.(type) {
			case *ast.Ident:
				if _, isBuiltin := pass.TypesInfo.Uses[fun].(*types.Builtin); isBuiltin && fun.Name == "panic" {
					pass.Reportf(call.Pos(), "avoid panic outside package main, return an error instead")
				}
			case *ast.SelectorExpr:
				ident, ok := fun.X.(*ast.Ident)
				if !ok {
					return true
				}
				pkgName, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)
				if !ok {
					return true
				}
				if names, found := terminating[pkgName.Imported().Path()]; found {
					if _, found := names[fun.Sel.Name]; found {
						pass.Reportf(
							call.Pos(),
							"avoid %s.%s outside package main, return an error instead",
							pkgName.Imported().Path(),
							fun.Sel.Name,
						)
					}
				}
			}

			return true
		})
	}
	return nil, nil
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/") || strings.Contains(path, `\go-build\`)
}
