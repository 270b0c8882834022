// Package model defines core data structures for extractsuper.
package model

import "strings"

// TypeDecl is one top-level type declaration as reported by a source front-end.
type TypeDecl struct {
	SimpleName  string
	IsInterface bool

	// HeaderStart and HeaderEnd are byte offsets of the declaration in the
	// source text. The header (modifiers through the opening body brace)
	// lies inside this span.
	HeaderStart int
	HeaderEnd   int

	HasExtends bool
	// ExtendsStart and ExtendsEnd delimit the superclass type as written
	// (after the extends keyword) when HasExtends is set.
	ExtendsStart int
	ExtendsEnd   int
	// ExtendsInsertAt is where a new extends clause belongs: the start of
	// the implements or permits clause, else of the body.
	ExtendsInsertAt int
	// ExtendsRaw is the superclass type exactly as written, generics included.
	ExtendsRaw string
	// ExtendsResolved is the bound fully-qualified superclass name, or "" when
	// the front-end could not bind it.
	ExtendsResolved string
}

// CompilationUnit is the parsed view of one source file.
type CompilationUnit struct {
	Package string
	// Imports lists imported names as written; on-demand imports keep
	// their trailing ".*". Static imports are omitted.
	Imports []string
	Types   []TypeDecl
}

// TargetType is an indexed class that may take part in a refactoring.
type TargetType struct {
	FQN         string
	PackageName string
	SimpleName  string
	FilePath    string

	HasExplicitSuperclass bool
	RawSuperclassText     string
	ResolvedSuperclassFQN string

	Imports []string
	Decl    TypeDecl
}

// NameParts is a type name split into package and simple name.
type NameParts struct {
	Package    string
	SimpleName string
}

// Qualified returns the dotted name, or the simple name in the default package.
func (n NameParts) Qualified() string {
	if n.Package == "" {
		return n.SimpleName
	}
	return n.Package + "." + n.SimpleName
}

// SplitQualified splits a dotted name at its last dot.
func SplitQualified(q string) NameParts {
	i := strings.LastIndex(q, ".")
	if i < 0 {
		return NameParts{SimpleName: q}
	}
	return NameParts{Package: q[:i], SimpleName: q[i+1:]}
}

// SituationKind classifies the targets' existing superclass state.
type SituationKind string

const (
	AllNone       SituationKind = "ALL_NONE"
	ExactlyOneHas SituationKind = "EXACTLY_ONE_HAS"
	TwoOrMoreHave SituationKind = "TWO_OR_MORE_HAVE"
)

// SuperSituation is the result of analysing the targets. Pivot is set only
// for ExactlyOneHas.
type SuperSituation struct {
	Kind  SituationKind
	Pivot *TargetType
}

// SuperclassPlacement says where a new superclass goes. When ExplicitFilePath
// is empty the file is placed next to the first target.
type SuperclassPlacement struct {
	Name             NameParts
	ExplicitFilePath string
}

// Request is a single extract-superclass invocation.
type Request struct {
	ProjectRoots       []string
	ClassNames         []string
	SuperQualifiedName string
	// OutputPath is the absolute directory or file for the new superclass.
	// Empty selects automatic placement.
	OutputPath string
	DryRun     bool
	Verbose    bool
}

// Result is the outcome of a Request.
type Result struct {
	Success                 bool     `json:"success"`
	ErrorMessage            string   `json:"errorMessage,omitempty"`
	SuperclassQualifiedName string   `json:"superclassQualifiedName,omitempty"`
	ModifiedFiles           []string `json:"modifiedFiles"`
	ElapsedMillis           int64    `json:"executionTimeMs"`
}

// BaseTypeName strips generic arguments and array suffixes from a written
// type, so "Base<T>[]" becomes "Base".
func BaseTypeName(written string) string {
	if i := strings.IndexAny(written, "<["); i >= 0 {
		written = written[:i]
	}
	return strings.TrimSpace(written)
}

// SimpleTypeName returns the last dotted segment of BaseTypeName(written).
func SimpleTypeName(written string) string {
	return SplitQualified(BaseTypeName(written)).SimpleName
}
