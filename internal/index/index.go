// Package index builds the request-scoped type index over project roots
// and resolves user-supplied and written type names against it.
package index

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/extractsuper/internal/discover"
	"github.com/phobologic/extractsuper/internal/lang"
	"github.com/phobologic/extractsuper/internal/model"
)

// Parser turns Java source into its declarations.
type Parser interface {
	Parse(source []byte) (*model.CompilationUnit, error)
}

// Index maps fully-qualified class names to their declarations. FQNs keep
// the order in which they were first seen; a later duplicate replaces the
// earlier record in place.
type Index struct {
	roots []string
	order []string
	types map[string]*model.TargetType
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	list func(root string, languages []string) ([]discover.FileEntry, error)
}

// WithIgnoreRules restricts indexing to files that git tracks, or that
// .gitignore does not exclude, outside build and hidden directories.
func WithIgnoreRules() BuildOption {
	return func(c *buildConfig) { c.list = discover.Files }
}

// Build parses every Java file under each root and records its top-level
// classes. Interfaces are not indexed. A read or parse failure aborts the build.
func Build(roots []string, fe Parser, logger *slog.Logger, opts ...BuildOption) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg := buildConfig{list: discover.AllFiles}
	for _, opt := range opts {
		opt(&cfg)
	}
	idx := &Index{types: make(map[string]*model.TargetType)}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving root %s: %w", root, err)
		}
		idx.roots = append(idx.roots, abs)

		files, err := cfg.list(abs, []string{lang.Java})
		if err != nil {
			return nil, fmt.Errorf("discovering files in %s: %w", abs, err)
		}
		logger.Debug("indexing root", "root", abs, "files", len(files))

		for _, f := range files {
			path := filepath.Join(abs, f.Path)
			source, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
			cu, err := fe.Parse(source)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
			idx.addUnit(path, cu)
		}
	}

	logger.Debug("index built", "types", len(idx.order))
	return idx, nil
}

func (idx *Index) addUnit(path string, cu *model.CompilationUnit) {
	for _, decl := range cu.Types {
		if decl.IsInterface {
			continue
		}
		name := model.NameParts{Package: cu.Package, SimpleName: decl.SimpleName}
		t := &model.TargetType{
			FQN:                   name.Qualified(),
			PackageName:           cu.Package,
			SimpleName:            decl.SimpleName,
			FilePath:              path,
			HasExplicitSuperclass: decl.HasExtends,
			RawSuperclassText:     decl.ExtendsRaw,
			ResolvedSuperclassFQN: decl.ExtendsResolved,
			Imports:               cu.Imports,
			Decl:                  decl,
		}
		if _, exists := idx.types[t.FQN]; !exists {
			idx.order = append(idx.order, t.FQN)
		}
		idx.types[t.FQN] = t
	}
}

// Roots returns the absolute project roots in the order given to Build.
func (idx *Index) Roots() []string {
	return idx.roots
}

// Len returns the number of indexed classes.
func (idx *Index) Len() int {
	return len(idx.order)
}

// Lookup returns the class with the given FQN.
func (idx *Index) Lookup(fqn string) (*model.TargetType, bool) {
	t, ok := idx.types[fqn]
	return t, ok
}

// PreferredPackage returns the package holding the most indexed classes.
// Ties go to the package encountered first.
func (idx *Index) PreferredPackage() string {
	counts := make(map[string]int)
	var pkgs []string
	for _, fqn := range idx.order {
		pkg := model.SplitQualified(fqn).Package
		if _, seen := counts[pkg]; !seen {
			pkgs = append(pkgs, pkg)
		}
		counts[pkg]++
	}
	best, bestCount := "", 0
	for _, pkg := range pkgs {
		if counts[pkg] > bestCount {
			best, bestCount = pkg, counts[pkg]
		}
	}
	return best
}

// ResolveNames maps user-supplied class names to FQNs. Names containing a
// dot are taken verbatim. A simple name with several matches resolves to
// the one in PreferredPackage, else the first encountered. Names with no
// match are dropped.
func (idx *Index) ResolveNames(names []string, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	bySimple := make(map[string][]string)
	for _, fqn := range idx.order {
		simple := model.SplitQualified(fqn).SimpleName
		bySimple[simple] = append(bySimple[simple], fqn)
	}
	preferred := idx.PreferredPackage()

	var out []string
	for _, name := range names {
		if strings.Contains(name, ".") {
			out = append(out, name)
			continue
		}
		candidates := bySimple[name]
		switch len(candidates) {
		case 0:
			logger.Warn("no class found", "name", name)
		case 1:
			out = append(out, candidates[0])
		default:
			pick := candidates[0]
			for _, c := range candidates {
				if preferred == "" || strings.HasPrefix(c, preferred+".") {
					pick = c
					break
				}
			}
			logger.Debug("ambiguous class name", "name", name, "candidates", candidates, "picked", pick)
			out = append(out, pick)
		}
	}
	return out
}

// Targets resolves names and returns the indexed classes they denote, in
// order, without duplicates. Qualified names absent from the index are dropped.
func (idx *Index) Targets(names []string, logger *slog.Logger) []*model.TargetType {
	seen := make(map[string]struct{})
	var out []*model.TargetType
	for _, fqn := range idx.ResolveNames(names, logger) {
		t, ok := idx.types[fqn]
		if !ok {
			continue
		}
		if _, dup := seen[fqn]; dup {
			continue
		}
		seen[fqn] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ResolveTypeName resolves a written type name seen from package pkg.
// Qualified names stand for themselves; a simple name resolves to pkg's
// class of that name, else the first indexed class with that simple name.
// It returns "" when nothing matches.
func (idx *Index) ResolveTypeName(name, pkg string) string {
	if name == "" {
		return ""
	}
	if strings.Contains(name, ".") {
		return name
	}
	if pkg != "" {
		if _, ok := idx.types[pkg+"."+name]; ok {
			return pkg + "." + name
		}
	}
	for _, fqn := range idx.order {
		if fqn == name || strings.HasSuffix(fqn, "."+name) {
			return fqn
		}
	}
	return ""
}

// SourceRootFor returns the first project root containing path.
func (idx *Index) SourceRootFor(path string) (string, bool) {
	for _, root := range idx.roots {
		if within(root, path) {
			return root, true
		}
	}
	return "", false
}

// InferPackage derives a package from an absolute directory under one of
// the project roots. Only segments after the last src/(main|test)/(java|kotlin|resources)
// triple count. ok is false when dir is outside every root.
func (idx *Index) InferPackage(dir string) (pkg string, ok bool) {
	dir = filepath.Clean(dir)
	for _, root := range idx.roots {
		if !within(root, dir) {
			continue
		}
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." {
			return "", true
		}
		segments := strings.Split(rel, string(filepath.Separator))
		start := 0
		for i := 0; i+2 < len(segments); i++ {
			if segments[i] == "src" &&
				(segments[i+1] == "main" || segments[i+1] == "test") &&
				(segments[i+2] == "java" || segments[i+2] == "kotlin" || segments[i+2] == "resources") {
				start = i + 3
			}
		}
		return strings.Join(segments[start:], "."), true
	}
	return "", false
}

// PackageDir picks a directory for a new class in pkg when no placement
// was planned. It uses the directory of any indexed class already in pkg;
// otherwise the project root (the anchor's on ties) where most of pkg's
// directories already exist, joined with the package path.
func (idx *Index) PackageDir(pkg string, anchor *model.TargetType) string {
	anchorRoot := ""
	if anchor != nil {
		anchorRoot, _ = idx.SourceRootFor(anchor.FilePath)
	}

	if pkg == "" {
		if anchorRoot != "" {
			return anchorRoot
		}
		return idx.firstRoot()
	}

	for _, fqn := range idx.order {
		if t := idx.types[fqn]; t.PackageName == pkg {
			return filepath.Dir(t.FilePath)
		}
	}

	segments := strings.Split(pkg, ".")
	bestRoot := ""
	bestDepth := -1
	for _, root := range idx.roots {
		depth := 0
		current := root
		for _, seg := range segments {
			current = filepath.Join(current, seg)
			if _, err := os.Stat(current); err != nil {
				break
			}
			depth++
		}
		if depth > bestDepth || (depth == bestDepth && anchorRoot == root) {
			bestDepth = depth
			bestRoot = root
		}
	}
	if bestRoot == "" {
		bestRoot = anchorRoot
	}
	if bestRoot == "" {
		bestRoot = idx.firstRoot()
	}
	return filepath.Join(append([]string{bestRoot}, segments...)...)
}

func (idx *Index) firstRoot() string {
	if len(idx.roots) > 0 {
		return idx.roots[0]
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
