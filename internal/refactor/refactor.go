// Package refactor runs one extract-superclass request end to end: it
// indexes the project roots, classifies the targets, plans and writes the
// superclass, rewrites the targets and updates module descriptors.
package refactor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phobologic/extractsuper/internal/depmerge"
	"github.com/phobologic/extractsuper/internal/graph"
	"github.com/phobologic/extractsuper/internal/index"
	"github.com/phobologic/extractsuper/internal/logging"
	"github.com/phobologic/extractsuper/internal/model"
	"github.com/phobologic/extractsuper/internal/parse"
	"github.com/phobologic/extractsuper/internal/plan"
	"github.com/phobologic/extractsuper/internal/rewrite"
)

var (
	// ErrInput reports a request that cannot be acted on.
	ErrInput = errors.New("invalid input")
	// ErrPlanning reports that no usable superclass name could be planned.
	ErrPlanning = errors.New("invalid superclass name plan")
)

// Frontend parses Java source and organizes its imports.
type Frontend interface {
	Parse(source []byte) (*model.CompilationUnit, error)
	RewriteImports(source []byte, required []string) ([]byte, error)
}

// Refactorer executes requests. It holds no per-request state.
type Refactorer struct {
	frontend      Frontend
	logger        *slog.Logger
	scanDepth     int
	pomIndent     int
	respectIgnore bool
}

// Option configures a Refactorer.
type Option func(*Refactorer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Refactorer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithScanDepth bounds module-descriptor discovery below each project root.
func WithScanDepth(depth int) Option {
	return func(r *Refactorer) {
		if depth > 0 {
			r.scanDepth = depth
		}
	}
}

// WithRespectIgnore skips sources that git or .gitignore exclude
// when indexing. By default every Java file beneath each root is indexed.
func WithRespectIgnore(on bool) Option {
	return func(r *Refactorer) { r.respectIgnore = on }
}

// WithPomIndent sets the indent width used when rewriting descriptors.
func WithPomIndent(indent int) Option {
	return func(r *Refactorer) {
		if indent >= 0 {
			r.pomIndent = indent
		}
	}
}

// WithFrontend replaces the tree-sitter front end.
func WithFrontend(fe Frontend) Option {
	return func(r *Refactorer) {
		if fe != nil {
			r.frontend = fe
		}
	}
}

// New returns a Refactorer using the tree-sitter Java front end.
func New(opts ...Option) *Refactorer {
	r := &Refactorer{
		frontend:  parse.New(),
		logger:    logging.Discard(),
		scanDepth: graph.DefaultScanDepth,
		pomIndent: 2,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes req. Failures are reported in the Result, never returned.
func (r *Refactorer) Run(req model.Request) model.Result {
	start := time.Now()
	out, err := r.run(req)
	out.ElapsedMillis = max(time.Since(start).Milliseconds(), 1)
	if out.ModifiedFiles == nil {
		out.ModifiedFiles = []string{}
	}
	if err != nil {
		r.logger.Error("extract superclass failed", "error", err)
		return model.Result{
			ErrorMessage:  err.Error(),
			ModifiedFiles: []string{},
			ElapsedMillis: out.ElapsedMillis,
		}
	}
	out.Success = true
	return out
}

// job carries the state of one request.
type job struct {
	req     model.Request
	idx     *index.Index
	targets []*model.TargetType
	log     *slog.Logger

	modified []string
}

func (j *job) record(path string) {
	j.modified = append(j.modified, path)
}

func (r *Refactorer) run(req model.Request) (model.Result, error) {
	if err := validate(req); err != nil {
		return model.Result{}, err
	}

	var buildOpts []index.BuildOption
	if r.respectIgnore {
		buildOpts = append(buildOpts, index.WithIgnoreRules())
	}
	idx, err := index.Build(req.ProjectRoots, r.frontend, r.logger, buildOpts...)
	if err != nil {
		return model.Result{}, fmt.Errorf("indexing: %w", err)
	}

	targets := idx.Targets(req.ClassNames, r.logger)
	if len(targets) < 2 {
		return model.Result{}, fmt.Errorf("%w: could not resolve two or more classes (resolved %d)", ErrInput, len(targets))
	}

	j := &job{req: req, idx: idx, targets: targets, log: r.logger}
	situation := plan.Analyze(targets)
	r.logger.Info("analyzed targets", "situation", string(situation.Kind), "targets", len(targets))

	var superName string
	switch situation.Kind {
	case model.AllNone:
		superName, err = r.extractNew(j)
	case model.ExactlyOneHas:
		superName, err = r.adoptPivot(j, situation.Pivot)
	default:
		superName, err = r.extractIntermediate(j)
	}
	if err != nil {
		return model.Result{}, err
	}
	return model.Result{SuperclassQualifiedName: superName, ModifiedFiles: j.modified}, nil
}

func validate(req model.Request) error {
	if len(req.ProjectRoots) == 0 {
		return fmt.Errorf("%w: no project roots", ErrInput)
	}
	for _, root := range req.ProjectRoots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: project root %q is not a directory", ErrInput, root)
		}
	}
	if req.OutputPath != "" && strings.TrimSpace(req.OutputPath) == "" {
		return fmt.Errorf("%w: output path is blank", ErrInput)
	}
	if req.OutputPath != "" && !filepath.IsAbs(req.OutputPath) {
		return fmt.Errorf("%w: output path %q is not absolute", ErrInput, req.OutputPath)
	}
	return nil
}

// extractNew creates a fresh abstract class and makes every target extend it.
func (r *Refactorer) extractNew(j *job) (string, error) {
	placement, err := r.plan(j)
	if err != nil {
		return "", err
	}
	name := placement.Name
	if j.req.DryRun {
		return name.Qualified(), nil
	}

	superFile, created, err := r.writeSuperclass(j, placement, "")
	if err != nil {
		return "", err
	}
	for _, t := range j.targets {
		if err := r.rewriteTarget(j, t, name, false); err != nil {
			return "", err
		}
	}
	if created {
		r.mergeDependencies(j, superFile)
	}
	return name.Qualified(), nil
}

// adoptPivot makes every target without a superclass extend the pivot's.
func (r *Refactorer) adoptPivot(j *job, pivot *model.TargetType) (string, error) {
	identity := plan.SuperclassIdentifier(j.idx, pivot)
	j.log.Debug("reusing pivot superclass", "pivot", pivot.FQN, "superclass", identity)
	if j.req.DryRun || identity == "" {
		return identity, nil
	}

	name := model.SplitQualified(identity)
	for _, t := range j.targets {
		if t == pivot || t.HasExplicitSuperclass {
			continue
		}
		if err := r.rewriteTarget(j, t, name, false); err != nil {
			return "", err
		}
	}
	return identity, nil
}

// extractIntermediate inserts a new class between the targets and the
// superclass they all share. Targets with differing superclasses are left
// alone.
func (r *Refactorer) extractIntermediate(j *job) (string, error) {
	shared := plan.CommonSuperclass(j.idx, j.targets)
	if shared == "" {
		j.log.Info("targets extend different superclasses, nothing to do")
		return "", nil
	}

	placement, err := r.plan(j)
	if err != nil {
		return "", err
	}
	name := placement.Name
	if j.req.DryRun {
		return name.Qualified(), nil
	}

	var superFile string
	created := false
	if name.Qualified() == shared {
		j.log.Debug("targets already extend the planned class", "superclass", shared)
	} else {
		superFile, created, err = r.writeSuperclass(j, placement, shared)
		if err != nil {
			return "", err
		}
	}
	for _, t := range j.targets {
		if err := r.rewriteTarget(j, t, name, true); err != nil {
			return "", err
		}
	}
	if created {
		r.mergeDependencies(j, superFile)
	}
	return name.Qualified(), nil
}

func (r *Refactorer) plan(j *job) (model.SuperclassPlacement, error) {
	planned := plan.Name(j.req.SuperQualifiedName, j.targets)
	if planned.SimpleName == "" {
		return model.SuperclassPlacement{}, ErrPlanning
	}
	placer := &plan.Placer{Index: j.idx, ScanDepth: r.scanDepth, Logger: j.log}
	placement := placer.Place(planned, j.req.OutputPath, j.req.SuperQualifiedName != "", j.targets)
	if placement.Name.SimpleName == "" {
		return model.SuperclassPlacement{}, ErrPlanning
	}
	return placement, nil
}

// writeSuperclass creates the superclass file unless one already exists.
func (r *Refactorer) writeSuperclass(j *job, placement model.SuperclassPlacement, extends string) (string, bool, error) {
	path := placement.ExplicitFilePath
	if path == "" {
		dir := j.idx.PackageDir(placement.Name.Package, j.targets[0])
		path = filepath.Join(dir, placement.Name.SimpleName+".java")
	}

	if _, err := os.Stat(path); err == nil {
		j.log.Warn("superclass file already exists, leaving it untouched", "path", path)
		return path, false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	content := rewrite.RenderAbstractClass(placement.Name, extends)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", false, fmt.Errorf("writing %s: %w", path, err)
	}
	j.log.Info("created superclass", "name", placement.Name.Qualified(), "path", path)
	j.record(path)
	return path, true, nil
}

// rewriteTarget points t's extends clause at super, by simple name, and
// makes sure the import exists when the packages differ. The file is
// re-parsed first so offsets stay valid after earlier edits to it.
func (r *Refactorer) rewriteTarget(j *job, t *model.TargetType, super model.NameParts, allowReplace bool) error {
	info, err := os.Stat(t.FilePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", t.FilePath, err)
	}
	source, err := os.ReadFile(t.FilePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", t.FilePath, err)
	}
	cu, err := r.frontend.Parse(source)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", t.FilePath, err)
	}
	decl, ok := findDecl(cu, t.SimpleName)
	if !ok {
		return fmt.Errorf("class %s no longer declared in %s", t.SimpleName, t.FilePath)
	}

	updated, changed := rewrite.Extend(string(source), decl, super.SimpleName, allowReplace)
	if !changed {
		j.log.Debug("target unchanged", "class", t.FQN)
		return nil
	}
	if super.Package != "" && super.Package != cu.Package {
		updated = r.ensureImport(j, t.FilePath, updated, super.Qualified())
	}

	if err := os.WriteFile(t.FilePath, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", t.FilePath, err)
	}
	j.log.Info("rewrote target", "class", t.FQN, "superclass", super.Qualified())
	j.record(t.FilePath)
	return nil
}

// ensureImport asks the front end for the import and falls back to plain
// text insertion when it fails.
func (r *Refactorer) ensureImport(j *job, path, source, fqn string) string {
	out, err := r.frontend.RewriteImports([]byte(source), []string{fqn})
	if err == nil {
		return string(out)
	}
	j.log.Debug("import organization failed, inserting manually", "path", path, "import", fqn, "error", err)
	return rewrite.InsertImport(source, fqn)
}

func (r *Refactorer) mergeDependencies(j *job, superFile string) {
	files := make([]string, 0, len(j.targets))
	for _, t := range j.targets {
		files = append(files, t.FilePath)
	}
	m := &depmerge.Merger{
		Roots:     j.idx.Roots(),
		ScanDepth: r.scanDepth,
		Indent:    r.pomIndent,
		Logger:    j.log,
	}
	for _, path := range m.Merge(superFile, files) {
		j.record(path)
	}
}

func findDecl(cu *model.CompilationUnit, simple string) (model.TypeDecl, bool) {
	for _, d := range cu.Types {
		if d.SimpleName == simple && !d.IsInterface {
			return d, true
		}
	}
	return model.TypeDecl{}, false
}
