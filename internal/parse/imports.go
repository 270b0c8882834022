package parse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/extractsuper/internal/model"
)

// RewriteImports returns source with a single-type import for each name in
// required that is not already visible. Names in the unit's own package, in
// java.lang, or covered by an existing on-demand import are left alone, and
// existing imports are never collapsed into on-demand form. New imports are
// placed in sorted position among the existing ones.
func (f *Frontend) RewriteImports(source []byte, required []string) ([]byte, error) {
	out := source
	for _, fqn := range required {
		next, err := f.addImport(out, fqn)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

func (f *Frontend) addImport(source []byte, fqn string) ([]byte, error) {
	parts := model.SplitQualified(fqn)
	if parts.Package == "" || parts.Package == "java.lang" {
		return source, nil
	}

	tree, err := f.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, ErrSyntax
	}

	var pkgNode *sitter.Node
	var pkg string
	var imports []importDecl
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			pkgNode = child
			pkg = packageName(child, source)
		case "import_declaration":
			imports = append(imports, readImport(child, source))
		}
	}

	if pkg == parts.Package {
		return source, nil
	}
	for _, imp := range imports {
		if imp.static {
			continue
		}
		if imp.wildcard && imp.name == parts.Package {
			return source, nil
		}
		if !imp.wildcard && imp.name == fqn {
			return source, nil
		}
	}

	line := "import " + fqn + ";"

	for _, imp := range imports {
		if !imp.static && imp.written() > fqn {
			return insertAt(source, int(imp.node.StartByte()), line+"\n"), nil
		}
	}
	if n := len(imports); n > 0 {
		return insertAt(source, int(imports[n-1].node.EndByte()), "\n"+line), nil
	}
	if pkgNode != nil {
		return insertAt(source, int(pkgNode.EndByte()), "\n\n"+line), nil
	}
	return insertAt(source, 0, line+"\n\n"), nil
}

func insertAt(source []byte, at int, text string) []byte {
	out := make([]byte, 0, len(source)+len(text))
	out = append(out, source[:at]...)
	out = append(out, text...)
	return append(out, source[at:]...)
}
