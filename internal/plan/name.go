package plan

import (
	"unicode"
	"unicode/utf8"

	"github.com/phobologic/extractsuper/internal/model"
)

const (
	namePrefix   = "Abstract"
	fallbackName = "AbstractBase"
)

// Name plans the new superclass name. An explicit qualified name is split
// at its last dot. Otherwise the package is the first target's, and the
// simple name is "Abstract" plus the targets' common prefix cut back to end
// in an upper-case letter.
func Name(explicit string, targets []*model.TargetType) model.NameParts {
	if explicit != "" {
		return model.SplitQualified(explicit)
	}
	if len(targets) == 0 {
		return model.NameParts{SimpleName: fallbackName}
	}

	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.SimpleName
	}
	base := trimToUpper(commonPrefix(names))
	simple := fallbackName
	if base != "" {
		simple = namePrefix + base
	}
	return model.NameParts{Package: targets[0].PackageName, SimpleName: simple}
}

func commonPrefix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	prefix := names[0]
	for _, n := range names[1:] {
		i := 0
		for i < len(prefix) && i < len(n) && prefix[i] == n[i] {
			i++
		}
		// Never split a multi-byte rune.
		for i > 0 && i < len(prefix) && !utf8.RuneStart(prefix[i]) {
			i--
		}
		prefix = prefix[:i]
		if prefix == "" {
			break
		}
	}
	return prefix
}

// trimToUpper drops trailing characters until the last one is upper-case.
func trimToUpper(s string) string {
	for s != "" {
		r, size := utf8.DecodeLastRuneInString(s)
		if unicode.IsUpper(r) {
			break
		}
		s = s[:len(s)-size]
	}
	return s
}
