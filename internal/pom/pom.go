// Package pom reads and updates Maven module descriptors.
package pom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
)

// FileName is the descriptor file name that marks a module root.
const FileName = "pom.xml"

// AggregatorPackaging is the packaging of modules that only group others.
const AggregatorPackaging = "pom"

// ErrNotDescriptor is returned when a file parses as XML but has no <project> root.
var ErrNotDescriptor = errors.New("missing <project> root element")

// Coordinate identifies a module by group and artifact.
type Coordinate struct {
	GroupID    string
	ArtifactID string
}

// Valid reports whether both fields are set.
func (c Coordinate) Valid() bool {
	return c.GroupID != "" && c.ArtifactID != ""
}

func (c Coordinate) String() string {
	return c.GroupID + ":" + c.ArtifactID
}

// Dependency is a declared dependency entry.
type Dependency struct {
	GroupID    string
	ArtifactID string
	Version    string
}

// Coordinate returns the dependency's group and artifact.
func (d Dependency) Coordinate() Coordinate {
	return Coordinate{GroupID: d.GroupID, ArtifactID: d.ArtifactID}
}

// Descriptor is a loaded pom.xml. Fields mirror the document at load time;
// AddDependency keeps Dependencies and the underlying document in step.
type Descriptor struct {
	Path          string
	GroupID       string
	ArtifactID    string
	Version       string
	Packaging     string
	ParentGroupID string
	ParentVersion string
	Dependencies  []Dependency

	doc *etree.Document
}

// Load reads and parses the descriptor at path.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.Path = path
	return d, nil
}

// Parse builds a Descriptor from raw descriptor content.
func Parse(data []byte) (*Descriptor, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing descriptor: %w", err)
	}
	project := doc.Root()
	if project == nil || project.Tag != "project" {
		return nil, ErrNotDescriptor
	}

	d := &Descriptor{
		GroupID:    childText(project, "groupId"),
		ArtifactID: childText(project, "artifactId"),
		Version:    childText(project, "version"),
		Packaging:  childText(project, "packaging"),
		doc:        doc,
	}
	if parent := project.SelectElement("parent"); parent != nil {
		d.ParentGroupID = childText(parent, "groupId")
		d.ParentVersion = childText(parent, "version")
	}
	for _, deps := range project.SelectElements("dependencies") {
		for _, el := range deps.SelectElements("dependency") {
			d.Dependencies = append(d.Dependencies, Dependency{
				GroupID:    childText(el, "groupId"),
				ArtifactID: childText(el, "artifactId"),
				Version:    childText(el, "version"),
			})
		}
	}
	return d, nil
}

// EffectiveGroupID returns the module's groupId, inherited from the parent when blank.
func (d *Descriptor) EffectiveGroupID() string {
	if d.GroupID != "" {
		return d.GroupID
	}
	return d.ParentGroupID
}

// EffectiveVersion returns the module's version, inherited from the parent when blank.
func (d *Descriptor) EffectiveVersion() string {
	if d.Version != "" {
		return d.Version
	}
	return d.ParentVersion
}

// Coordinate returns the module's effective identity.
func (d *Descriptor) Coordinate() Coordinate {
	return Coordinate{GroupID: d.EffectiveGroupID(), ArtifactID: d.ArtifactID}
}

// IsAggregatorPackaging reports whether packaging marks a module that only groups others.
func IsAggregatorPackaging(packaging string) bool {
	return strings.EqualFold(strings.TrimSpace(packaging), AggregatorPackaging)
}

// HasDependency reports whether c is declared in any direct <dependencies> block.
func (d *Descriptor) HasDependency(c Coordinate) bool {
	for _, dep := range d.Dependencies {
		if dep.Coordinate() == c {
			return true
		}
	}
	return false
}

// AddDependency appends dep to the first direct <dependencies> block,
// creating the block when the module has none. It returns false without
// touching the document when dep is already declared or names the module
// itself.
func (d *Descriptor) AddDependency(dep Dependency) bool {
	c := dep.Coordinate()
	if c == d.Coordinate() || d.HasDependency(c) {
		return false
	}

	project := d.doc.Root()
	deps := project.SelectElement("dependencies")
	if deps == nil {
		deps = project.CreateElement("dependencies")
	}
	el := deps.CreateElement("dependency")
	el.CreateElement("groupId").SetText(dep.GroupID)
	el.CreateElement("artifactId").SetText(dep.ArtifactID)
	if dep.Version != "" {
		el.CreateElement("version").SetText(dep.Version)
	}

	d.Dependencies = append(d.Dependencies, dep)
	return true
}

// Bytes serializes the descriptor, re-indenting with indent spaces.
func (d *Descriptor) Bytes(indent int) ([]byte, error) {
	d.doc.Indent(indent)
	return d.doc.WriteToBytes()
}

// Save writes the descriptor back to its Path.
func (d *Descriptor) Save(indent int) error {
	if d.Path == "" {
		return errors.New("descriptor has no path")
	}
	data, err := d.Bytes(indent)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", d.Path, err)
	}
	return os.WriteFile(d.Path, data, 0o644)
}

// FindModuleRoot returns the nearest directory at or above dir that
// directly contains a descriptor.
func FindModuleRoot(dir string) (string, bool) {
	for current := filepath.Clean(dir); ; {
		if info, err := os.Stat(filepath.Join(current, FileName)); err == nil && !info.IsDir() {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}
