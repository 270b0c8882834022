package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	sentinelStart = "<!-- extractsuper:start -->"
	sentinelEnd   = "<!-- extractsuper:end -->"
)

// newInitCmd implements `extractsuper init`, which writes (or updates) an
// extractsuper usage section in a CLAUDE.md file.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "init [path-to-CLAUDE.md]",
		Short: "Write an extractsuper usage section to CLAUDE.md",
		Long: `Write an extractsuper usage section to a CLAUDE.md file. The section is
wrapped in sentinel comments so it can be updated in place on subsequent runs
without touching surrounding content. Creates the file if it does not exist.

path-to-CLAUDE.md defaults to ./CLAUDE.md.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args, dryRun, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

func runInit(args []string, dryRun bool, stdout, stderr io.Writer) error {
	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := "CLAUDE.md"
	if len(args) > 0 {
		path = args[0]
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote extractsuper section to %s\n", path)
	return nil
}

// generateSection returns the full sentinel-wrapped extractsuper documentation block.
func generateSection() string {
	body := `## extractsuper: Extract Superclass refactoring

Use ` + "`extractsuper`" + ` via the Bash tool when two or more Java classes should
share an abstract superclass. It creates or reuses the superclass, rewrites the
classes' extends clauses, and adds Maven module dependencies where needed.

**Availability:** Check with ` + "`extractsuper version`" + ` first; skip gracefully if
not found.

**Run it:**
` + "```" + `bash
extractsuper -c ProcessorA,ProcessorB .               # plan name and module automatically
extractsuper -c a.Foo,b.Bar -s com.acme.AbstractBase .  # explicit superclass name
extractsuper -c Foo,Bar -o /abs/src/main/java/pkg .   # explicit output directory
extractsuper -c Foo,Bar -d .                          # dry run, no files touched
extractsuper -c Foo,Bar --format json moduleA,moduleB # several project roots
` + "```" + `

**All flags:** ` + "`extractsuper --help`" + `

**How to use the output. Follow these rules:**

1. **Dry-run first.** Run with ` + "`-d`" + ` and check ` + "`superclass`" + ` before
   letting it modify files.

2. **Review every file in ` + "`modified`" + `.** The list includes the new superclass,
   each rewritten class and any updated ` + "`pom.xml`" + `.

3. **An empty ` + "`superclass`" + ` with ` + "`success: true`" + ` means the classes
   already extend different types.** Nothing was changed; pick the classes again.

4. **Move shared members yourself.** The tool only creates the class and rewires
   extends clauses; it never moves methods or fields.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
