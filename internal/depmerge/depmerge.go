// Package depmerge makes target modules depend on the module that owns a
// newly created superclass, without introducing dependency cycles.
package depmerge

import (
	"log/slog"
	"path/filepath"

	"github.com/phobologic/extractsuper/internal/graph"
	"github.com/phobologic/extractsuper/internal/pom"
)

// Merger updates module descriptors after a superclass has been created.
type Merger struct {
	Roots     []string // project roots scanned for the module graph
	ScanDepth int
	Indent    int
	Logger    *slog.Logger
}

// Merge adds a dependency on the superclass's module to every distinct
// module owning one of targetFiles, and returns the descriptors it wrote.
// A module is skipped when the superclass's module already reaches it
// (the new edge would close a cycle) or when it already reaches the
// superclass's module. Descriptor failures are logged and skipped.
func (m *Merger) Merge(superFile string, targetFiles []string) []string {
	log := m.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	superRoot, ok := pom.FindModuleRoot(filepath.Dir(superFile))
	if !ok {
		log.Debug("no module owns superclass file", "path", superFile)
		return nil
	}
	superPom, err := pom.Load(filepath.Join(superRoot, pom.FileName))
	if err != nil {
		log.Warn("cannot read superclass module descriptor", "module", superRoot, "error", err)
		return nil
	}
	superCoord := superPom.Coordinate()
	if !superCoord.Valid() {
		log.Warn("superclass module descriptor lacks groupId or artifactId", "path", superPom.Path)
		return nil
	}

	var targetRoots []string
	seen := map[string]struct{}{superRoot: {}}
	for _, f := range targetFiles {
		root, ok := pom.FindModuleRoot(filepath.Dir(f))
		if !ok {
			continue
		}
		if _, dup := seen[root]; dup {
			continue
		}
		seen[root] = struct{}{}
		targetRoots = append(targetRoots, root)
	}
	if len(targetRoots) == 0 {
		return nil
	}

	g := graph.Build(m.Roots, append([]string{superRoot}, targetRoots...), m.ScanDepth, log)
	superModule := g.ByRoot(superRoot)

	var changed []string
	for _, root := range targetRoots {
		path := filepath.Join(root, pom.FileName)
		targetPom, err := pom.Load(path)
		if err != nil {
			log.Warn("cannot read module descriptor", "path", path, "error", err)
			continue
		}
		if !targetPom.Coordinate().Valid() {
			log.Warn("module descriptor lacks groupId or artifactId", "path", path)
			continue
		}

		if target := g.ByRoot(root); superModule != nil && target != nil {
			if g.HasPath(superModule, target) {
				log.Warn("skipping dependency that would create a cycle", "module", target.String(), "dependency", superModule.String())
				continue
			}
			if g.HasPath(target, superModule) {
				log.Debug("dependency already satisfied", "module", target.String(), "dependency", superModule.String())
				continue
			}
		}

		dep := pom.Dependency{
			GroupID:    superCoord.GroupID,
			ArtifactID: superCoord.ArtifactID,
			Version:    superPom.EffectiveVersion(),
		}
		if !targetPom.AddDependency(dep) {
			continue
		}
		if err := targetPom.Save(m.Indent); err != nil {
			log.Warn("cannot write module descriptor", "path", path, "error", err)
			continue
		}
		log.Info("added module dependency", "module", path, "dependency", superCoord.String())
		changed = append(changed, path)
	}
	return changed
}
