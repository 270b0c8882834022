// Package discover finds source files and build-module descriptors in a
// project tree.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/extractsuper/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to project root
	Language string
}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	".idea":        {},
	".gradle":      {},
	".mvn":         {},
	"target":       {},
}

// moduleSkipDirs are build, VCS and IDE output directories that never hold
// a module descriptor worth registering.
var moduleSkipDirs = map[string]struct{}{
	"target":  {},
	"build":   {},
	"out":     {},
	".idea":   {},
	".git":    {},
	".gradle": {},
}

// Files discovers parseable source files under root.
// If languages is non-empty, only files matching one of the listed languages are returned.
// Files outside the git index, gitignored files, hidden entries and
// build or dependency directories are skipped.
func Files(root string, languages []string) ([]FileEntry, error) {
	return walk(root, languages, true)
}

// AllFiles is like Files but applies no ignore rules: every regular source
// file beneath root is returned, including those under target/ or hidden
// directories. Symlinks are still skipped.
func AllFiles(root string, languages []string) ([]FileEntry, error) {
	return walk(root, languages, false)
}

func walk(root string, languages []string, filtered bool) ([]FileEntry, error) {
	langSet := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		langSet[l] = struct{}{}
	}
	var gitFiles map[string]struct{}
	var gi *ignore.GitIgnore
	if filtered {
		gitFiles = gitLsFiles(root)
		if gitFiles == nil {
			gi = loadGitignore(root)
		}
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root || !filtered {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if filtered && strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[filepath.ToSlash(rel)]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		langName := lang.ForExtension(filepath.Ext(name))
		if langName == "" {
			return nil
		}

		if len(langSet) > 0 {
			if _, ok := langSet[langName]; !ok {
				return nil
			}
		}

		results = append(results, FileEntry{Path: rel, Language: langName})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// Descriptors returns absolute paths of files named fileName (compared
// case-insensitively) under root, at most maxDepth path segments deep.
// Directories named for build, VCS or IDE output are not entered.
// Results are sorted.
func Descriptors(root, fileName string, maxDepth int) ([]string, error) {
	var found []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		depth := len(strings.Split(rel, string(filepath.Separator)))

		if d.IsDir() {
			if _, skip := moduleSkipDirs[d.Name()]; skip || depth >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if depth <= maxDepth && strings.EqualFold(d.Name(), fileName) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
