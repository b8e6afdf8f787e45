// Command write_boundary reports service methods that write contact tables
// directly instead of going through the identity aggregate. It exits 1 when
// any are found.
package main

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var repoWriteMethods = map[string]bool{
	"Create": true,
	"Demote": true,
	"Relink": true,
}

var aggregateWriteMethods = map[string]bool{
	"Identify": true,
}

type fieldKinds struct {
	repos      map[string]string
	aggregates map[string]string
}

type finding struct {
	Struct string `json:"struct"`
	Method string `json:"method"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Call   string `json:"call"`
}

type report struct {
	Packages         []string  `json:"packages"`
	AggregateWrites  int       `json:"aggregate_write_callsites"`
	DirectRepoWrites []finding `json:"direct_repo_writes"`
}

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	var out report
	for _, dir := range []string{"internal/services", "internal/http/handlers", "internal/cli"} {
		abs := filepath.Join(root, dir)
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		out.Packages = append(out.Packages, dir)
		if err := scanDir(root, abs, &out); err != nil {
			exitf("scan %s: %v", dir, err)
		}
	}
	sort.Slice(out.DirectRepoWrites, func(i, j int) bool {
		a, b := out.DirectRepoWrites[i], out.DirectRepoWrites[j]
		if a.File == b.File {
			return a.Line < b.Line
		}
		return a.File < b.File
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		exitf("encode report: %v", err)
	}
	if len(out.DirectRepoWrites) > 0 {
		os.Exit(1)
	}
}

func scanDir(root, dir string, out *report) error {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, dir, func(fi os.FileInfo) bool {
		return strings.HasSuffix(fi.Name(), ".go") && !strings.HasSuffix(fi.Name(), "_test.go")
	}, 0)
	if err != nil {
		return err
	}
	for _, pkg := range pkgs {
		kinds := map[string]fieldKinds{}
		for _, f := range pkg.Files {
			collectFields(f, kinds)
		}
		for path, f := range pkg.Files {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = path
			}
			scanMethods(fset, f, filepath.ToSlash(rel), kinds, out)
		}
	}
	return nil
}

// collectFields records struct fields typed repos.*Repo or domainagg.*Aggregate.
func collectFields(file *ast.File, out map[string]fieldKinds) {
	ast.Inspect(file, func(n ast.Node) bool {
		ts, ok := n.(*ast.TypeSpec)
		if !ok {
			return true
		}
		st, ok := ts.Type.(*ast.StructType)
		if !ok || st.Fields == nil {
			return false
		}
		fk := fieldKinds{repos: map[string]string{}, aggregates: map[string]string{}}
		for _, field := range st.Fields.List {
			sel, ok := field.Type.(*ast.SelectorExpr)
			if !ok {
				continue
			}
			pkgIdent, ok := sel.X.(*ast.Ident)
			if !ok {
				continue
			}
			for _, name := range field.Names {
				switch {
				case pkgIdent.Name == "repos" && strings.HasSuffix(sel.Sel.Name, "Repo"):
					fk.repos[name.Name] = sel.Sel.Name
				case pkgIdent.Name == "domainagg" && strings.HasSuffix(sel.Sel.Name, "Aggregate"):
					fk.aggregates[name.Name] = sel.Sel.Name
				}
			}
		}
		if len(fk.repos) > 0 || len(fk.aggregates) > 0 {
			out[ts.Name.Name] = fk
		}
		return false
	})
}

func scanMethods(fset *token.FileSet, file *ast.File, rel string, kinds map[string]fieldKinds, out *report) {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv == nil || fd.Body == nil || len(fd.Recv.List) == 0 {
			continue
		}
		recvName, recvType := recvInfo(fd.Recv.List[0])
		fk, ok := kinds[recvType]
		if !ok {
			continue
		}
		ast.Inspect(fd.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			fnSel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			rcvSel, ok := fnSel.X.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			base, ok := rcvSel.X.(*ast.Ident)
			if !ok || base.Name != recvName {
				return true
			}
			field, method := rcvSel.Sel.Name, fnSel.Sel.Name
			if repoType, ok := fk.repos[field]; ok && repoWriteMethods[method] {
				out.DirectRepoWrites = append(out.DirectRepoWrites, finding{
					Struct: recvType,
					Method: fd.Name.Name,
					File:   rel,
					Line:   fset.Position(call.Pos()).Line,
					Call:   repoType + "." + method,
				})
			}
			if _, ok := fk.aggregates[field]; ok && aggregateWriteMethods[method] {
				out.AggregateWrites++
			}
			return true
		})
	}
}

func recvInfo(field *ast.Field) (string, string) {
	if field == nil || len(field.Names) == 0 {
		return "", ""
	}
	switch t := field.Type.(type) {
	case *ast.StarExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return field.Names[0].Name, id.Name
		}
	case *ast.Ident:
		return field.Names[0].Name, t.Name
	}
	return "", ""
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
