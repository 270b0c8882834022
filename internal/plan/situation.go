// Package plan classifies the targets' superclass situation and decides
// the name and location of a superclass to create.
package plan

import (
	"strings"

	"github.com/phobologic/extractsuper/internal/index"
	"github.com/phobologic/extractsuper/internal/model"
)

// Analyze counts the targets that declare a superclass. The first such
// target is the pivot when exactly one does.
func Analyze(targets []*model.TargetType) model.SuperSituation {
	var pivot *model.TargetType
	count := 0
	for _, t := range targets {
		if !t.HasExplicitSuperclass {
			continue
		}
		count++
		if pivot == nil {
			pivot = t
		}
	}
	switch count {
	case 0:
		return model.SuperSituation{Kind: model.AllNone}
	case 1:
		return model.SuperSituation{Kind: model.ExactlyOneHas, Pivot: pivot}
	default:
		return model.SuperSituation{Kind: model.TwoOrMoreHave}
	}
}

// ExistingSuperclassFQN resolves t's written superclass to a qualified name:
// the front end's binding, then the index seen from t's package, then t's
// single-type imports. It returns "" when none applies.
func ExistingSuperclassFQN(idx *index.Index, t *model.TargetType) string {
	if !t.HasExplicitSuperclass {
		return ""
	}
	if t.ResolvedSuperclassFQN != "" {
		return t.ResolvedSuperclassFQN
	}
	raw := model.BaseTypeName(t.RawSuperclassText)
	if raw == "" {
		return ""
	}
	if fqn := idx.ResolveTypeName(raw, t.PackageName); fqn != "" {
		return fqn
	}
	simple := model.SimpleTypeName(raw)
	for _, imp := range t.Imports {
		if strings.HasSuffix(imp, ".*") {
			continue
		}
		if imp == raw || strings.HasSuffix(imp, "."+simple) {
			return imp
		}
	}
	return ""
}

// SuperclassIdentifier is ExistingSuperclassFQN falling back to the written
// base name.
func SuperclassIdentifier(idx *index.Index, t *model.TargetType) string {
	if fqn := ExistingSuperclassFQN(idx, t); fqn != "" {
		return fqn
	}
	return model.BaseTypeName(t.RawSuperclassText)
}

// CommonSuperclass returns the identifier every target's superclass resolves
// to, or "" if any target has none or two identifiers differ.
func CommonSuperclass(idx *index.Index, targets []*model.TargetType) string {
	common := ""
	for _, t := range targets {
		if !t.HasExplicitSuperclass {
			return ""
		}
		id := SuperclassIdentifier(idx, t)
		if id == "" {
			return ""
		}
		if common == "" {
			common = id
		} else if id != common {
			return ""
		}
	}
	return common
}
