package refactor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phobologic/extractsuper/internal/model"
	"github.com/phobologic/extractsuper/internal/parse"
)

const srcDir = "src/main/java/com/example"

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func exists(root, rel string) bool {
	_, err := os.Stat(filepath.Join(root, rel))
	return err == nil
}

func processors(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, srcDir+"/ProcessorA.java", "package com.example;\n\npublic class ProcessorA {\n}\n")
	writeFile(t, root, srcDir+"/ProcessorB.java", "package com.example;\n\npublic class ProcessorB implements Runnable {\n    public void run() {}\n}\n")
	return root
}

func request(root string, classes ...string) model.Request {
	return model.Request{ProjectRoots: []string{root}, ClassNames: classes}
}

func TestRunCreatesSuperclass(t *testing.T) {
	t.Parallel()

	root := processors(t)
	res := New().Run(request(root, "ProcessorA", "ProcessorB"))
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrorMessage)
	}
	if res.SuperclassQualifiedName != "com.example.AbstractP" {
		t.Errorf("superclass = %q", res.SuperclassQualifiedName)
	}
	if res.ElapsedMillis < 1 {
		t.Errorf("elapsed = %d", res.ElapsedMillis)
	}

	want := "package com.example;\n\npublic abstract class AbstractP {\n}\n"
	if got := readFile(t, root, srcDir+"/AbstractP.java"); got != want {
		t.Errorf("AbstractP.java = %q, want %q", got, want)
	}
	if got := readFile(t, root, srcDir+"/ProcessorA.java"); got != "package com.example;\n\npublic class ProcessorA extends AbstractP {\n}\n" {
		t.Errorf("ProcessorA.java = %q", got)
	}
	if got := readFile(t, root, srcDir+"/ProcessorB.java"); !strings.Contains(got, "public class ProcessorB extends AbstractP implements Runnable {") {
		t.Errorf("ProcessorB.java = %q", got)
	}

	wantFiles := []string{
		filepath.Join(root, srcDir, "AbstractP.java"),
		filepath.Join(root, srcDir, "ProcessorA.java"),
		filepath.Join(root, srcDir, "ProcessorB.java"),
	}
	if strings.Join(res.ModifiedFiles, ",") != strings.Join(wantFiles, ",") {
		t.Errorf("modified = %v, want %v", res.ModifiedFiles, wantFiles)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	root := processors(t)
	r := New()
	if res := r.Run(request(root, "ProcessorA", "ProcessorB")); !res.Success {
		t.Fatalf("first run failed: %s", res.ErrorMessage)
	}
	before := readFile(t, root, srcDir+"/ProcessorA.java")

	res := r.Run(request(root, "ProcessorA", "ProcessorB"))
	if !res.Success {
		t.Fatalf("second run failed: %s", res.ErrorMessage)
	}
	if len(res.ModifiedFiles) != 0 {
		t.Errorf("second run modified %v", res.ModifiedFiles)
	}
	if readFile(t, root, srcDir+"/ProcessorA.java") != before {
		t.Error("second run changed ProcessorA.java")
	}
}

// snapshot returns the content of every file below root, keyed by path.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[path] = string(data)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return files
}

func TestRunDryRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		classes []string
		want    string
	}{
		{
			name:    "no superclass",
			setup:   processors,
			classes: []string{"ProcessorA", "ProcessorB"},
			want:    "com.example.AbstractP",
		},
		{
			name: "one superclass",
			setup: func(t *testing.T) string {
				root := t.TempDir()
				writeFile(t, root, srcDir+"/Base.java", "package com.example;\n\npublic class Base {\n}\n")
				writeFile(t, root, srcDir+"/JobA.java", "package com.example;\n\npublic class JobA extends Base {\n}\n")
				writeFile(t, root, srcDir+"/JobB.java", "package com.example;\n\npublic class JobB {\n}\n")
				return root
			},
			classes: []string{"JobA", "JobB"},
			want:    "com.example.Base",
		},
		{
			name: "shared superclass",
			setup: func(t *testing.T) string {
				root := t.TempDir()
				writeFile(t, root, srcDir+"/Base.java", "package com.example;\n\npublic class Base {\n}\n")
				writeFile(t, root, srcDir+"/ReportA.java", "package com.example;\n\npublic class ReportA extends Base {\n}\n")
				writeFile(t, root, srcDir+"/ReportB.java", "package com.example;\n\npublic class ReportB extends Base {\n}\n")
				return root
			},
			classes: []string{"ReportA", "ReportB"},
			want:    "com.example.AbstractR",
		},
		{
			name: "independent modules",
			setup: func(t *testing.T) string {
				root := t.TempDir()
				writePom(t, root, "a", "a")
				writePom(t, root, "b", "b")
				writeFile(t, root, "a/"+srcDir+"/ProcessorA.java", "package com.example;\n\npublic class ProcessorA {\n}\n")
				writeFile(t, root, "b/"+srcDir+"/ProcessorB.java", "package com.example;\n\npublic class ProcessorB {\n}\n")
				return root
			},
			classes: []string{"ProcessorA", "ProcessorB"},
			want:    "com.example.AbstractP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := tt.setup(t)
			before := snapshot(t, root)

			req := request(root, tt.classes...)
			req.DryRun = true
			dry := New().Run(req)
			if !dry.Success {
				t.Fatalf("dry run failed: %s", dry.ErrorMessage)
			}
			if dry.SuperclassQualifiedName != tt.want {
				t.Errorf("dry run superclass = %q, want %q", dry.SuperclassQualifiedName, tt.want)
			}
			if len(dry.ModifiedFiles) != 0 {
				t.Errorf("dry run modified = %v", dry.ModifiedFiles)
			}
			after := snapshot(t, root)
			if len(after) != len(before) {
				t.Errorf("dry run changed the file set: %d files, want %d", len(after), len(before))
			}
			for path, content := range before {
				if after[path] != content {
					t.Errorf("dry run changed %s", path)
				}
			}

			live := New().Run(request(root, tt.classes...))
			if !live.Success {
				t.Fatalf("live run failed: %s", live.ErrorMessage)
			}
			if live.SuperclassQualifiedName != dry.SuperclassQualifiedName {
				t.Errorf("live superclass = %q, dry run reported %q", live.SuperclassQualifiedName, dry.SuperclassQualifiedName)
			}
			if len(live.ModifiedFiles) == 0 {
				t.Error("live run modified nothing")
			}
		})
	}
}

func TestRunWildcardBoundInImplements(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, srcDir+"/ProcessorA.java", "package com.example;\n\npublic class ProcessorA {\n}\n")
	writeFile(t, root, srcDir+"/ProcessorB.java",
		"package com.example;\n\nimport java.util.List;\nimport java.util.function.Supplier;\n\npublic class ProcessorB implements Supplier<List<? extends Number>> {\n    public List<Integer> get() { return List.of(1); }\n}\n")

	res := New().Run(request(root, "ProcessorA", "ProcessorB"))
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrorMessage)
	}
	if res.SuperclassQualifiedName != "com.example.AbstractP" {
		t.Errorf("superclass = %q", res.SuperclassQualifiedName)
	}
	got := readFile(t, root, srcDir+"/ProcessorB.java")
	if !strings.Contains(got, "public class ProcessorB extends AbstractP implements Supplier<List<? extends Number>> {") {
		t.Errorf("ProcessorB.java = %q", got)
	}
	if len(res.ModifiedFiles) != 3 {
		t.Errorf("modified = %v, want superclass and both targets", res.ModifiedFiles)
	}
}

func TestRunReusesPivotSuperclass(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "src/main/java/a/View.java",
		"package a;\n\nimport javax.swing.JComponent;\n\npublic class View extends JComponent {\n}\n")
	writeFile(t, root, "src/main/java/b/Panel.java",
		"package b;\n\npublic class Panel {\n}\n")
	writeFile(t, root, "src/main/java/b/Label.java",
		"package b;\n\npublic class Label extends Object {\n}\n")

	res := New().Run(request(root, "View", "Panel"))
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrorMessage)
	}
	if res.SuperclassQualifiedName != "javax.swing.JComponent" {
		t.Errorf("superclass = %q", res.SuperclassQualifiedName)
	}
	want := "package b;\n\nimport javax.swing.JComponent;\n\npublic class Panel extends JComponent {\n}\n"
	if got := readFile(t, root, "src/main/java/b/Panel.java"); got != want {
		t.Errorf("Panel.java = %q, want %q", got, want)
	}
	if len(res.ModifiedFiles) != 1 {
		t.Errorf("modified = %v", res.ModifiedFiles)
	}
	if exists(root, "src/main/java/a/AbstractBase.java") {
		t.Error("no class should be created")
	}
}

func TestRunPivotLeavesOtherSuperclassesAlone(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, srcDir+"/Base.java", "package com.example;\n\npublic class Base {\n}\n")
	writeFile(t, root, srcDir+"/JobA.java", "package com.example;\n\npublic class JobA extends Base {\n}\n")
	writeFile(t, root, srcDir+"/JobB.java", "package com.example;\n\npublic class JobB {\n}\n")

	res := New().Run(request(root, "JobA", "JobB"))
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrorMessage)
	}
	if res.SuperclassQualifiedName != "com.example.Base" {
		t.Errorf("superclass = %q", res.SuperclassQualifiedName)
	}
	if got := readFile(t, root, srcDir+"/JobB.java"); got != "package com.example;\n\npublic class JobB extends Base {\n}\n" {
		t.Errorf("JobB.java = %q", got)
	}
}

func TestRunInsertsIntermediateClass(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, srcDir+"/Base.java", "package com.example;\n\npublic class Base {\n}\n")
	writeFile(t, root, srcDir+"/ReportA.java", "package com.example;\n\npublic class ReportA extends Base {\n}\n")
	writeFile(t, root, srcDir+"/ReportB.java", "package com.example;\n\npublic class ReportB extends com.example.Base implements Cloneable {\n}\n")

	res := New().Run(request(root, "ReportA", "ReportB"))
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrorMessage)
	}
	if res.SuperclassQualifiedName != "com.example.AbstractR" {
		t.Errorf("superclass = %q", res.SuperclassQualifiedName)
	}
	want := "package com.example;\n\npublic abstract class AbstractR extends com.example.Base {\n}\n"
	if got := readFile(t, root, srcDir+"/AbstractR.java"); got != want {
		t.Errorf("AbstractR.java = %q, want %q", got, want)
	}
	if got := readFile(t, root, srcDir+"/ReportA.java"); got != "package com.example;\n\npublic class ReportA extends AbstractR {\n}\n" {
		t.Errorf("ReportA.java = %q", got)
	}
	if got := readFile(t, root, srcDir+"/ReportB.java"); got != "package com.example;\n\npublic class ReportB extends AbstractR implements Cloneable {\n}\n" {
		t.Errorf("ReportB.java = %q", got)
	}
	if len(res.ModifiedFiles) != 3 {
		t.Errorf("modified = %v", res.ModifiedFiles)
	}

	again := New().Run(request(root, "ReportA", "ReportB"))
	if !again.Success || len(again.ModifiedFiles) != 0 {
		t.Errorf("re-run = %+v, want success with no changes", again)
	}
}

func TestRunDifferentSuperclassesIsNoop(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, srcDir+"/JobA.java", "package com.example;\n\npublic class JobA extends Thread {\n}\n")
	writeFile(t, root, srcDir+"/JobB.java", "package com.example;\n\npublic class JobB extends Exception {\n}\n")

	res := New().Run(request(root, "JobA", "JobB"))
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrorMessage)
	}
	if res.SuperclassQualifiedName != "" {
		t.Errorf("superclass = %q, want empty", res.SuperclassQualifiedName)
	}
	if res.ModifiedFiles == nil || len(res.ModifiedFiles) != 0 {
		t.Errorf("modified = %#v, want empty slice", res.ModifiedFiles)
	}
}

func TestRunExplicitNameAndOutputDirectory(t *testing.T) {
	t.Parallel()

	root := processors(t)
	out := filepath.Join(root, "src/main/java/com/shared")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}

	req := request(root, "ProcessorA", "ProcessorB")
	req.SuperQualifiedName = "com.shared.AbstractThing"
	req.OutputPath = out
	res := New().Run(req)
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrorMessage)
	}
	if res.SuperclassQualifiedName != "com.shared.AbstractThing" {
		t.Errorf("superclass = %q", res.SuperclassQualifiedName)
	}
	if !exists(root, "src/main/java/com/shared/AbstractThing.java") {
		t.Fatal("superclass not written to output directory")
	}
	want := "package com.example;\n\nimport com.shared.AbstractThing;\n\npublic class ProcessorA extends AbstractThing {\n}\n"
	if got := readFile(t, root, srcDir+"/ProcessorA.java"); got != want {
		t.Errorf("ProcessorA.java = %q, want %q", got, want)
	}
}

// failingImports wraps the real front end but refuses to organize imports.
type failingImports struct {
	*parse.Frontend
}

func (failingImports) RewriteImports([]byte, []string) ([]byte, error) {
	return nil, errors.New("organizer unavailable")
}

func TestRunFallsBackToManualImport(t *testing.T) {
	t.Parallel()

	root := processors(t)
	out := filepath.Join(root, "src/main/java/com/shared")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}

	req := request(root, "ProcessorA", "ProcessorB")
	req.SuperQualifiedName = "com.shared.AbstractThing"
	req.OutputPath = out
	res := New(WithFrontend(failingImports{parse.New()})).Run(req)
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrorMessage)
	}
	want := "package com.example;\n\nimport com.shared.AbstractThing;\n\npublic class ProcessorA extends AbstractThing {\n}\n"
	if got := readFile(t, root, srcDir+"/ProcessorA.java"); got != want {
		t.Errorf("ProcessorA.java = %q, want %q", got, want)
	}
}

func TestRunOutputFileNamesClass(t *testing.T) {
	t.Parallel()

	root := processors(t)
	req := request(root, "ProcessorA", "ProcessorB")
	req.OutputPath = filepath.Join(root, "src/main/java/com/example/base/Processor")
	res := New().Run(req)
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrorMessage)
	}
	if res.SuperclassQualifiedName != "com.example.base.Processor" {
		t.Errorf("superclass = %q", res.SuperclassQualifiedName)
	}
	want := "package com.example.base;\n\npublic abstract class Processor {\n}\n"
	if got := readFile(t, root, "src/main/java/com/example/base/Processor.java"); got != want {
		t.Errorf("Processor.java = %q, want %q", got, want)
	}
}

func TestRunNeverOverwritesExistingFile(t *testing.T) {
	t.Parallel()

	root := processors(t)
	existing := "package com.example;\n\n// hand written\npublic class AbstractP {\n}\n"
	writeFile(t, root, srcDir+"/AbstractP.java", existing)

	res := New().Run(request(root, "ProcessorA", "ProcessorB"))
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrorMessage)
	}
	if got := readFile(t, root, srcDir+"/AbstractP.java"); got != existing {
		t.Errorf("existing file overwritten: %q", got)
	}
	for _, f := range res.ModifiedFiles {
		if strings.HasSuffix(f, "AbstractP.java") {
			t.Errorf("existing file reported as modified")
		}
	}
}

func writePom(t *testing.T, root, dir, artifact string, deps ...string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("<project>\n  <groupId>com.example</groupId>\n  <artifactId>" + artifact + "</artifactId>\n  <version>1.0</version>\n")
	if len(deps) > 0 {
		b.WriteString("  <dependencies>\n")
		for _, d := range deps {
			b.WriteString("    <dependency>\n      <groupId>com.example</groupId>\n      <artifactId>" + d + "</artifactId>\n    </dependency>\n")
		}
		b.WriteString("  </dependencies>\n")
	}
	b.WriteString("</project>\n")
	writeFile(t, root, filepath.Join(dir, "pom.xml"), b.String())
}

func TestRunPlacesInCommonUpstreamModule(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePom(t, root, "core", "core")
	writePom(t, root, "app", "app", "core")
	writeFile(t, root, "app/"+srcDir+"/ProcessorA.java", "package com.example;\n\npublic class ProcessorA {\n}\n")
	writeFile(t, root, "core/"+srcDir+"/ProcessorB.java", "package com.example;\n\npublic class ProcessorB {\n}\n")
	appPom := readFile(t, root, "app/pom.xml")

	res := New().Run(request(root, "ProcessorA", "ProcessorB"))
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrorMessage)
	}
	if !exists(root, "core/"+srcDir+"/AbstractP.java") {
		t.Error("superclass not placed in core")
	}
	if exists(root, "app/"+srcDir+"/AbstractP.java") {
		t.Error("superclass placed in app")
	}
	if readFile(t, root, "app/pom.xml") != appPom {
		t.Error("app descriptor changed although it already depends on core")
	}
	for _, f := range res.ModifiedFiles {
		if strings.HasSuffix(f, "pom.xml") {
			t.Errorf("unexpected descriptor change %s", f)
		}
	}
}

func TestRunAddsModuleDependency(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writePom(t, root, "a", "a")
	writePom(t, root, "b", "b")
	writeFile(t, root, "a/"+srcDir+"/ProcessorA.java", "package com.example;\n\npublic class ProcessorA {\n}\n")
	writeFile(t, root, "b/"+srcDir+"/ProcessorB.java", "package com.example;\n\npublic class ProcessorB {\n}\n")

	res := New().Run(request(root, "ProcessorA", "ProcessorB"))
	if !res.Success {
		t.Fatalf("run failed: %s", res.ErrorMessage)
	}
	if !exists(root, "a/"+srcDir+"/AbstractP.java") {
		t.Fatal("superclass not placed next to the first target")
	}
	last := res.ModifiedFiles[len(res.ModifiedFiles)-1]
	if last != filepath.Join(root, "b", "pom.xml") {
		t.Errorf("last modified = %s, want b/pom.xml", last)
	}
	if got := readFile(t, root, "b/pom.xml"); !strings.Contains(got, "<artifactId>a</artifactId>") {
		t.Errorf("b/pom.xml lacks dependency on a:\n%s", got)
	}
	if strings.Contains(readFile(t, root, "a/pom.xml"), "<dependency>") {
		t.Error("a/pom.xml must not gain a dependency")
	}
}

func TestRunInputErrors(t *testing.T) {
	t.Parallel()

	root := processors(t)
	file := filepath.Join(root, srcDir, "ProcessorA.java")

	tests := []struct {
		name string
		req  model.Request
	}{
		{"no roots", model.Request{ClassNames: []string{"ProcessorA", "ProcessorB"}}},
		{"root is a file", model.Request{ProjectRoots: []string{file}, ClassNames: []string{"ProcessorA", "ProcessorB"}}},
		{"one class", request(root, "ProcessorA")},
		{"unknown class", request(root, "ProcessorA", "Missing")},
		{"blank output", model.Request{ProjectRoots: []string{root}, ClassNames: []string{"ProcessorA", "ProcessorB"}, OutputPath: "  "}},
		{"relative output", model.Request{ProjectRoots: []string{root}, ClassNames: []string{"ProcessorA", "ProcessorB"}, OutputPath: "out"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New().run(tt.req)
			if !errors.Is(err, ErrInput) {
				t.Errorf("err = %v, want ErrInput", err)
			}
		})
	}

	res := New().Run(request(root, "ProcessorA"))
	if res.Success || res.ErrorMessage == "" {
		t.Errorf("Run = %+v, want failure with message", res)
	}
	if res.ModifiedFiles == nil || len(res.ModifiedFiles) != 0 {
		t.Errorf("modified = %#v", res.ModifiedFiles)
	}
	if exists(root, srcDir+"/AbstractP.java") {
		t.Error("failed run created a file")
	}
}

// brokenParser rejects any source containing "BROKEN".
type brokenParser struct {
	*parse.Frontend
}

func (b brokenParser) Parse(source []byte) (*model.CompilationUnit, error) {
	if strings.Contains(string(source), "BROKEN") {
		return nil, errors.New("unexpected token")
	}
	return b.Frontend.Parse(source)
}

func TestRunParseFailureAborts(t *testing.T) {
	t.Parallel()

	root := processors(t)
	writeFile(t, root, srcDir+"/Broken.java", "BROKEN")

	res := New(WithFrontend(brokenParser{parse.New()})).Run(request(root, "ProcessorA", "ProcessorB"))
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.ErrorMessage, "unexpected token") {
		t.Errorf("message = %q", res.ErrorMessage)
	}
	if exists(root, srcDir+"/AbstractP.java") {
		t.Error("failed run created a file")
	}
}
