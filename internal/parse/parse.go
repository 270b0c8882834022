// Package parse extracts type declarations from Java sources using tree-sitter
// and rewrites their import lists.
package parse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/extractsuper/internal/lang"
	"github.com/phobologic/extractsuper/internal/model"
)

// ErrSyntax is returned by RewriteImports when the source does not parse cleanly.
var ErrSyntax = errors.New("source has syntax errors")

// Frontend parses Java compilation units. It is not safe for concurrent use.
type Frontend struct {
	parser *sitter.Parser
}

// New returns a Frontend backed by the registered Java grammar.
func New() *Frontend {
	return &Frontend{parser: lang.Languages[lang.Java].NewParser()}
}

// Parse returns the package, imports and top-level class and interface
// declarations of source.
func (f *Frontend) Parse(source []byte) (*model.CompilationUnit, error) {
	tree, err := f.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	cu := &model.CompilationUnit{}

	var decls []*sitter.Node
	declared := make(map[string]struct{})
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			cu.Package = packageName(child, source)
		case "import_declaration":
			imp := readImport(child, source)
			if imp.name != "" && !imp.static {
				cu.Imports = append(cu.Imports, imp.written())
			}
		case "class_declaration", "interface_declaration", "annotation_type_declaration":
			decls = append(decls, child)
			if name := child.ChildByFieldName("name"); name != nil {
				declared[lang.NodeText(name, source)] = struct{}{}
			}
		}
	}

	for _, node := range decls {
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		decl := model.TypeDecl{
			SimpleName:  lang.NodeText(nameNode, source),
			IsInterface: node.Type() != "class_declaration",
			HeaderStart: int(node.StartByte()),
			HeaderEnd:   int(node.EndByte()),
		}
		decl.ExtendsInsertAt = extendsInsertAt(node)
		if sc := node.ChildByFieldName("superclass"); sc != nil && sc.NamedChildCount() > 0 {
			typ := sc.NamedChild(0)
			decl.HasExtends = true
			decl.ExtendsStart = int(typ.StartByte())
			decl.ExtendsEnd = int(typ.EndByte())
			decl.ExtendsRaw = lang.CollapseWhitespace(lang.NodeText(typ, source))
			decl.ExtendsResolved = bind(decl.ExtendsRaw, cu, declared)
		}
		cu.Types = append(cu.Types, decl)
	}

	return cu, nil
}

// extendsInsertAt returns the offset a new extends clause goes before: the
// implements or permits clause when present, else the body. It is -1 when
// the declaration has no body.
func extendsInsertAt(node *sitter.Node) int {
	for _, field := range []string{"interfaces", "permits", "body"} {
		if child := node.ChildByFieldName(field); child != nil {
			return int(child.StartByte())
		}
	}
	return -1
}

// bind resolves a written superclass the way a compiler would from the
// unit alone: qualified names stand for themselves, then single-type
// imports, then types declared in the same unit.
func bind(written string, cu *model.CompilationUnit, declared map[string]struct{}) string {
	base := model.BaseTypeName(written)
	if base == "" {
		return ""
	}
	if strings.Contains(base, ".") {
		return base
	}
	for _, imp := range cu.Imports {
		if strings.HasSuffix(imp, ".*") {
			continue
		}
		if strings.HasSuffix(imp, "."+base) {
			return imp
		}
	}
	if _, ok := declared[base]; ok {
		return model.NameParts{Package: cu.Package, SimpleName: base}.Qualified()
	}
	return ""
}

func packageName(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "scoped_identifier" || child.Type() == "identifier" {
			return lang.NodeText(child, source)
		}
	}
	return ""
}

type importDecl struct {
	node     *sitter.Node
	name     string
	static   bool
	wildcard bool
}

func (d importDecl) written() string {
	if d.wildcard {
		return d.name + ".*"
	}
	return d.name
}

func readImport(node *sitter.Node, source []byte) importDecl {
	imp := importDecl{node: node}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "static":
			imp.static = true
		case "scoped_identifier", "identifier":
			imp.name = lang.NodeText(child, source)
		case "asterisk":
			imp.wildcard = true
		}
	}
	return imp
}
