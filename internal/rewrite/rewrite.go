// Package rewrite applies span-preserving textual edits to Java class headers.
package rewrite

import (
	"regexp"
	"strings"

	"github.com/phobologic/extractsuper/internal/model"
)

var (
	importStmtRe = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+[^;]+;`)
	packageRe    = regexp.MustCompile(`(?m)^[ \t]*package[ \t]+[^;]+;`)
)

// PatchSpan returns text with [start, end) replaced. Every byte outside the
// span is preserved.
func PatchSpan(text string, start, end int, replacement string) string {
	return text[:start] + replacement + text[end:]
}

// Extend makes the class declared by decl extend superName, using the
// offsets the front end recorded in decl. An existing extends clause is kept
// unless allowReplace is set, in which case only its type (with any type
// arguments) is replaced. Without a clause the new one goes before
// implements/permits, or before the body brace. The second result reports
// whether the text changed.
func Extend(source string, decl model.TypeDecl, superName string, allowReplace bool) (string, bool) {
	if decl.HasExtends {
		if !allowReplace || !validSpan(source, decl.ExtendsStart, decl.ExtendsEnd) {
			return source, false
		}
		out := PatchSpan(source, decl.ExtendsStart, decl.ExtendsEnd, superName)
		return out, out != source
	}

	at := decl.ExtendsInsertAt
	if !validSpan(source, decl.HeaderStart, at) {
		return source, false
	}
	for at > decl.HeaderStart && isSpace(source[at-1]) {
		at--
	}
	return PatchSpan(source, at, at, " extends "+superName), true
}

func validSpan(source string, start, end int) bool {
	return start >= 0 && start < end && end <= len(source)
}

// InsertImport adds "import fqn;" when the exact statement is absent: after
// the last import, else after the package declaration, else at the top.
func InsertImport(source, fqn string) string {
	if !strings.Contains(fqn, ".") {
		return source
	}
	stmt := "import " + fqn + ";"
	if strings.Contains(source, stmt) {
		return source
	}

	if all := importStmtRe.FindAllStringIndex(source, -1); len(all) > 0 {
		last := all[len(all)-1][1]
		return PatchSpan(source, last, last, "\n"+stmt)
	}
	if loc := packageRe.FindStringIndex(source); loc != nil {
		return PatchSpan(source, loc[1], loc[1], "\n\n"+stmt)
	}
	return stmt + "\n\n" + source
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// RenderAbstractClass returns the source of an empty public abstract class.
// extends may be empty.
func RenderAbstractClass(name model.NameParts, extends string) string {
	var b strings.Builder
	if name.Package != "" {
		b.WriteString("package " + name.Package + ";\n\n")
	}
	b.WriteString("public abstract class " + name.SimpleName)
	if extends != "" {
		b.WriteString(" extends " + extends)
	}
	b.WriteString(" {\n}\n")
	return b.String()
}
