package plan

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/extractsuper/internal/graph"
	"github.com/phobologic/extractsuper/internal/index"
	"github.com/phobologic/extractsuper/internal/model"
	"github.com/phobologic/extractsuper/internal/pom"
)

const javaExt = ".java"

// Placer decides where a new superclass file goes.
type Placer struct {
	Index     *index.Index
	ScanDepth int
	Logger    *slog.Logger
}

// Place returns the placement for planned. With an output path the file
// goes there (or into it, if it is a directory). Without one, the module
// graph picks a common upstream module; when that fails the placement has
// no file path and the caller falls back to Index.PackageDir. Unless
// explicitName is set, the package is re-derived from the chosen directory.
func (p *Placer) Place(planned model.NameParts, outputPath string, explicitName bool, targets []*model.TargetType) model.SuperclassPlacement {
	if outputPath != "" {
		return p.placeExplicit(planned, outputPath, explicitName)
	}
	if placement, ok := p.placeInModule(planned, explicitName, targets); ok {
		return placement
	}
	return model.SuperclassPlacement{Name: planned}
}

func (p *Placer) placeExplicit(planned model.NameParts, outputPath string, explicitName bool) model.SuperclassPlacement {
	requested, err := filepath.Abs(outputPath)
	if err != nil {
		requested = filepath.Clean(outputPath)
	}

	name := planned
	var file string
	if info, err := os.Stat(requested); err == nil && info.IsDir() {
		file = filepath.Join(requested, planned.SimpleName+javaExt)
	} else {
		base := filepath.Base(requested)
		if !strings.HasSuffix(strings.ToLower(base), javaExt) {
			base += javaExt
		}
		file = filepath.Join(filepath.Dir(requested), base)
		if simple := base[:len(base)-len(javaExt)]; simple != "" {
			name.SimpleName = simple
		}
	}

	if !explicitName {
		name.Package = p.inferPackage(filepath.Dir(file), name.Package)
	}
	p.logger().Debug("planned explicit placement", "name", name.Qualified(), "path", file)
	return model.SuperclassPlacement{Name: name, ExplicitFilePath: file}
}

func (p *Placer) placeInModule(planned model.NameParts, explicitName bool, targets []*model.TargetType) (model.SuperclassPlacement, bool) {
	log := p.logger()
	if len(targets) == 0 {
		return model.SuperclassPlacement{}, false
	}

	var moduleRoots []string
	for _, t := range targets {
		root, ok := pom.FindModuleRoot(filepath.Dir(t.FilePath))
		if !ok {
			log.Debug("skipping auto placement: no module root", "class", t.FQN)
			return model.SuperclassPlacement{}, false
		}
		moduleRoots = append(moduleRoots, root)
	}

	g := graph.Build(p.Index.Roots(), moduleRoots, p.ScanDepth, log)
	if g.Len() == 0 {
		return model.SuperclassPlacement{}, false
	}

	var modules []*graph.Module
	seen := make(map[*graph.Module]struct{})
	for _, root := range moduleRoots {
		m := g.ByRoot(root)
		if m == nil {
			log.Debug("skipping auto placement: module missing from graph", "module", root)
			return model.SuperclassPlacement{}, false
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		modules = append(modules, m)
	}

	candidate := g.SelectBestCommonUpstream(modules)
	if candidate == nil {
		log.Debug("no common upstream module", "modules", len(modules))
		return model.SuperclassPlacement{}, false
	}

	parts := []string{candidate.SourceRoot()}
	if planned.Package != "" {
		parts = append(parts, strings.Split(planned.Package, ".")...)
	}
	parts = append(parts, planned.SimpleName+javaExt)
	file := filepath.Join(parts...)

	name := planned
	if !explicitName {
		name.Package = p.inferPackage(filepath.Dir(file), name.Package)
	}
	log.Info("auto-selected superclass module", "module", candidate.String(), "path", file)
	return model.SuperclassPlacement{Name: name, ExplicitFilePath: file}, true
}

func (p *Placer) inferPackage(dir, fallback string) string {
	if pkg, ok := p.Index.InferPackage(dir); ok {
		return pkg
	}
	p.logger().Debug("package not inferable, keeping planned package", "dir", dir, "package", fallback)
	return fallback
}

func (p *Placer) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}
