package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/phobologic/extractsuper/internal/model"
)

const toolName = "extract_superclass"

func extractSuperclassTool() *sdk.Tool {
	str := func(desc string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "string", Description: desc}
	}
	list := func(desc string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "array", Description: desc, Items: &jsonschema.Schema{Type: "string"}}
	}
	flag := func(desc string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "boolean", Description: desc}
	}
	return &sdk.Tool{
		Name:        toolName,
		Description: "Create or reuse a shared abstract superclass for the selected Java classes and rewrite their extends clauses.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"projectRoot":          str("Project root directory. Several roots may be separated by commas."),
				"projectRoots":         list("Alias for projectRoot as a list."),
				"classNames":           list("Simple or fully qualified names of the classes to refactor (at least two)."),
				"className":            str("Alias for classNames as a comma-separated string."),
				"superQualifiedName":   str("Optional fully qualified name for the new superclass."),
				"superName":            str("Alias for superQualifiedName."),
				"absoluteOutputPath":   str("Optional absolute directory or file path for the new superclass. Omit for automatic module selection."),
				"absolute_output_path": str("Alias for absoluteOutputPath."),
				"dryRun":               flag("Plan without modifying files."),
				"verbose":              flag("Log debug detail to stderr."),
			},
		},
	}
}

// parseArguments turns tool arguments into a Request, accepting the
// camelCase, singular and snake_case aliases.
func parseArguments(args map[string]json.RawMessage) (model.Request, error) {
	var req model.Request

	for _, key := range []string{"projectRoot", "projectRoots"} {
		values, err := stringValues(args[key])
		if err != nil {
			return req, fmt.Errorf("%s: %w", key, err)
		}
		req.ProjectRoots = append(req.ProjectRoots, values...)
	}
	if len(req.ProjectRoots) == 0 {
		return req, errors.New("missing required parameter: projectRoot")
	}
	var invalid []string
	for _, root := range req.ProjectRoots {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			invalid = append(invalid, root)
		}
	}
	if len(invalid) > 0 {
		return req, fmt.Errorf("projectRoot path(s) must exist and be directories: %s", strings.Join(invalid, ", "))
	}

	for _, key := range []string{"classNames", "className"} {
		values, err := stringValues(args[key])
		if err != nil {
			return req, fmt.Errorf("%s: %w", key, err)
		}
		req.ClassNames = append(req.ClassNames, values...)
	}
	if len(req.ClassNames) == 0 {
		return req, errors.New("missing required parameter: classNames")
	}

	var err error
	if req.SuperQualifiedName, err = firstText(args, "superQualifiedName", "superName"); err != nil {
		return req, err
	}
	if req.OutputPath, err = firstText(args, "absoluteOutputPath", "absolute_output_path"); err != nil {
		return req, err
	}
	if req.OutputPath != "" && !filepath.IsAbs(req.OutputPath) {
		return req, fmt.Errorf("absoluteOutputPath must be absolute: %s", req.OutputPath)
	}
	if req.DryRun, err = boolValue(args, "dryRun"); err != nil {
		return req, err
	}
	if req.Verbose, err = boolValue(args, "verbose"); err != nil {
		return req, err
	}
	return req, nil
}

// stringValues reads a string (split on commas) or an array of strings.
// Blank entries are dropped.
func stringValues(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var items []string
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		items = strings.Split(single, ",")
	} else if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.New("expected a string or an array of strings")
	}

	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// firstText returns the first non-blank string among keys, trimmed.
func firstText(args map[string]json.RawMessage, keys ...string) (string, error) {
	for _, key := range keys {
		raw, ok := args[key]
		if !ok || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%s: expected a string", key)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
	return "", nil
}

func boolValue(args map[string]json.RawMessage, key string) (bool, error) {
	raw, ok := args[key]
	if !ok || string(raw) == "null" {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, fmt.Errorf("%s: expected a boolean", key)
	}
	return b, nil
}

// summarize renders the human-readable text content of a tool result.
func summarize(res model.Result, dryRun bool) string {
	var b strings.Builder
	if !res.Success {
		b.WriteString("[ERROR] Extract Superclass refactoring failed.\n")
		msg := strings.TrimSpace(res.ErrorMessage)
		if msg == "" {
			msg = "An unknown error occurred."
		}
		fmt.Fprintf(&b, "  %s\n", msg)
		return b.String()
	}

	b.WriteString("[SUCCESS] Extract Superclass refactoring completed.\n")
	if res.SuperclassQualifiedName != "" {
		fmt.Fprintf(&b, "  Superclass: %s\n", res.SuperclassQualifiedName)
	}
	switch {
	case dryRun:
		b.WriteString("  Dry run requested - no files were modified.\n")
	case len(res.ModifiedFiles) > 0:
		b.WriteString("  Modified files:\n")
		for _, f := range res.ModifiedFiles {
			fmt.Fprintf(&b, "    %s\n", f)
		}
	default:
		b.WriteString("  No files were modified.\n")
	}
	if res.ElapsedMillis > 0 {
		fmt.Fprintf(&b, "  Execution time: %d ms\n", res.ElapsedMillis)
	}
	return b.String()
}
