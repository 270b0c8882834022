// Package graph builds the module dependency graph and selects placement modules.
package graph

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phobologic/extractsuper/internal/discover"
	"github.com/phobologic/extractsuper/internal/lang"
	"github.com/phobologic/extractsuper/internal/pom"
	"github.com/phobologic/extractsuper/internal/ranking"
)

// DefaultScanDepth bounds descriptor discovery below each project root.
const DefaultScanDepth = 8

// Module is one build module. Deps is populated by Link.
type Module struct {
	Root       string
	Coordinate pom.Coordinate
	Version    string
	Packaging  string
	HasSources bool
	Declared   []pom.Coordinate
	Deps       []*Module
}

// Eligible reports whether the module may receive a new superclass.
func (m *Module) Eligible() bool {
	return m.Coordinate.Valid() && !pom.IsAggregatorPackaging(m.Packaging)
}

// SourceRoot returns the module's conventional Java source directory.
func (m *Module) SourceRoot() string {
	return filepath.Join(m.Root, lang.Languages[lang.Java].SourceRoots[0])
}

func (m *Module) String() string {
	if m.Coordinate.Valid() {
		return m.Coordinate.String()
	}
	return m.Root
}

// Graph is a set of modules keyed by root, with edges from a module to the
// modules it depends on.
type Graph struct {
	modules []*Module
	byRoot  map[string]*Module
	byCoord map[pom.Coordinate]*Module
	logger  *slog.Logger
}

// New returns an empty graph.
func New(logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Graph{
		byRoot:  make(map[string]*Module),
		byCoord: make(map[pom.Coordinate]*Module),
		logger:  logger,
	}
}

// Build scans every project root for descriptors, registers the extra
// module roots (typically the ones owning target classes), and links the
// result. Unreadable descriptors are skipped.
func Build(projectRoots, extraRoots []string, maxDepth int, logger *slog.Logger) *Graph {
	g := New(logger)
	if maxDepth <= 0 {
		maxDepth = DefaultScanDepth
	}

	for _, root := range projectRoots {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		paths, err := discover.Descriptors(abs, pom.FileName, maxDepth)
		if err != nil {
			g.logger.Debug("descriptor scan failed", "root", abs, "error", err)
			continue
		}
		for _, p := range paths {
			g.Register(p)
		}
	}

	for _, root := range extraRoots {
		p := filepath.Join(root, pom.FileName)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		g.Register(p)
	}

	g.Link()
	return g
}

// Register loads the descriptor at path and adds its module. A module root
// already present is left as is. The first module registered for a
// coordinate owns it.
func (g *Graph) Register(descriptorPath string) *Module {
	root, err := filepath.Abs(filepath.Dir(descriptorPath))
	if err != nil {
		return nil
	}
	if m, ok := g.byRoot[root]; ok {
		return m
	}

	d, err := pom.Load(descriptorPath)
	if err != nil {
		g.logger.Debug("skipping descriptor", "path", descriptorPath, "error", err)
		return nil
	}

	m := &Module{
		Root:       root,
		Coordinate: d.Coordinate(),
		Version:    d.EffectiveVersion(),
		Packaging:  d.Packaging,
	}
	seen := make(map[pom.Coordinate]struct{})
	for _, dep := range d.Dependencies {
		c := dep.Coordinate()
		if !c.Valid() {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		m.Declared = append(m.Declared, c)
	}
	if info, err := os.Stat(m.SourceRoot()); err == nil && info.IsDir() {
		m.HasSources = true
	}

	g.modules = append(g.modules, m)
	g.byRoot[root] = m
	if m.Coordinate.Valid() {
		if _, taken := g.byCoord[m.Coordinate]; !taken {
			g.byCoord[m.Coordinate] = m
		}
	}
	return m
}

// Link resolves declared dependency coordinates to registered modules.
// Unknown coordinates and self references are dropped.
func (g *Graph) Link() {
	for _, m := range g.modules {
		m.Deps = m.Deps[:0]
		linked := make(map[*Module]struct{})
		for _, c := range m.Declared {
			dep := g.byCoord[c]
			if dep == nil || dep == m {
				continue
			}
			if _, dup := linked[dep]; dup {
				continue
			}
			linked[dep] = struct{}{}
			m.Deps = append(m.Deps, dep)
		}
	}
}

// Len returns the number of registered modules.
func (g *Graph) Len() int {
	return len(g.modules)
}

// ByRoot returns the module rooted at dir, or nil.
func (g *Graph) ByRoot(dir string) *Module {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil
	}
	return g.byRoot[abs]
}

// Distances returns every module reachable from start with its hop count,
// in breadth-first order. start itself is first with distance 0.
func (g *Graph) Distances(start *Module) ([]*Module, map[*Module]int) {
	dist := map[*Module]int{start: 0}
	order := []*Module{start}
	for i := 0; i < len(order); i++ {
		current := order[i]
		for _, dep := range current.Deps {
			if _, seen := dist[dep]; seen {
				continue
			}
			dist[dep] = dist[current] + 1
			order = append(order, dep)
		}
	}
	return order, dist
}

// HasPath reports whether to is reachable from from along dependency
// edges. A module always reaches itself.
func (g *Graph) HasPath(from, to *Module) bool {
	if from == nil || to == nil {
		return false
	}
	_, dist := g.Distances(from)
	_, ok := dist[to]
	return ok
}

// SelectBestCommonUpstream returns the module every target module depends
// on (or is) that can take a new superclass without closing a cycle, or
// nil when none qualifies. targets[0] is the primary module.
func (g *Graph) SelectBestCommonUpstream(targets []*Module) *Module {
	if len(targets) == 0 {
		return nil
	}

	order, first := g.Distances(targets[0])
	maps := []map[*Module]int{first}
	for _, t := range targets[1:] {
		_, dist := g.Distances(t)
		maps = append(maps, dist)
	}

	var candidates []*Module
	var scores []ranking.Score
	for _, c := range order {
		distances, common := distancesFrom(c, maps)
		if !common || !c.Eligible() || g.reachesTarget(c, targets) {
			continue
		}
		candidates = append(candidates, c)
		scores = append(scores, ranking.NewScore(c.Root, c.HasSources, c == targets[0], distances))
	}

	best := ranking.Best(scores)
	if best < 0 {
		return nil
	}
	return candidates[best]
}

func distancesFrom(c *Module, maps []map[*Module]int) ([]int, bool) {
	distances := make([]int, 0, len(maps))
	for _, dist := range maps {
		d, ok := dist[c]
		if !ok {
			return nil, false
		}
		distances = append(distances, d)
	}
	return distances, true
}

// reachesTarget reports whether c depends on any target other than itself.
// Adding target -> c would then close a cycle.
func (g *Graph) reachesTarget(c *Module, targets []*Module) bool {
	for _, t := range targets {
		if c != t && g.HasPath(c, t) {
			return true
		}
	}
	return false
}
