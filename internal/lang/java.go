package lang

import (
	"path/filepath"

	"github.com/smacker/go-tree-sitter/java"
)

// Java is the name under which the Java grammar is registered.
const Java = "java"

func init() {
	Languages[Java] = &Language{
		Name:       Java,
		Extensions: []string{".java"},
		lang:       java.GetLanguage(),
		SourceRoots: []string{
			filepath.Join("src", "main", "java"),
		},
	}
}
