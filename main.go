// extractsuper performs the Extract Superclass refactoring on Java sources
// across one or more Maven project trees.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/extractsuper/internal/config"
	"github.com/phobologic/extractsuper/internal/logging"
	"github.com/phobologic/extractsuper/internal/model"
	"github.com/phobologic/extractsuper/internal/refactor"
	"github.com/phobologic/extractsuper/internal/toon"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(os.Stdin, stdout, stderr)
	cmd.SetArgs(args)
	return cmd.Execute()
}

type rootOptions struct {
	classes      string
	superName    string
	output       string
	absoluteOut  string
	dryRun       bool
	verbose      bool
	configFile   string
	outputFormat string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "extractsuper [flags] <projectRoot>...",
		Short: "Extract a shared abstract superclass from Java classes",
		Long: `extractsuper creates (or reuses) a common abstract superclass for two or
more Java classes and rewrites their extends clauses. In multi-module Maven
trees the superclass is placed in a module every target can depend on, and
module descriptors gain the missing dependencies without creating cycles.

Project roots may be given as several arguments or comma-separated.`,
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, &opts, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("extractsuper {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default .extractsuper.yaml)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug detail to stderr")

	f := cmd.Flags()
	f.StringVarP(&opts.classes, "classes", "c", "", "comma-separated class names (simple or fully qualified)")
	f.StringVarP(&opts.superName, "super-name", "s", "", "fully qualified name of the superclass to create")
	f.StringVarP(&opts.output, "output", "o", "", "directory or .java file for the new superclass (default: automatic)")
	f.StringVar(&opts.absoluteOut, "absolute-output-path", "", "alias for --output")
	f.BoolVarP(&opts.dryRun, "dry-run", "d", false, "plan without modifying files")
	f.StringVar(&opts.outputFormat, "format", "", "result format: toon or json (default from config)")
	_ = cmd.MarkFlagRequired("classes")

	cmd.AddCommand(
		newInitCmd(stdout, stderr),
		newMCPCmd(&opts, stdout, stderr),
		newVersionCmd(stdout),
	)
	return cmd
}

// loadConfig reads configuration. An explicit --format wins over the
// config file and environment.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	v, err := config.New(opts.configFile)
	if err != nil {
		return config.Config{}, err
	}
	if flag := cmd.Flags().Lookup("format"); flag != nil {
		if err := v.BindPFlag("output", flag); err != nil {
			return config.Config{}, fmt.Errorf("binding --format: %w", err)
		}
	}
	return config.Load(v)
}

func runExtract(cmd *cobra.Command, args []string, opts *rootOptions, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger := logging.New(stderr, logging.Level(cfg.LogLevel, opts.verbose))

	roots, err := projectRoots(args)
	if err != nil {
		return err
	}
	classes, err := classNames(opts.classes)
	if err != nil {
		return err
	}
	output := opts.output
	if output == "" {
		output = opts.absoluteOut
	}
	if strings.TrimSpace(output) != "" {
		if output, err = filepath.Abs(strings.TrimSpace(output)); err != nil {
			return fmt.Errorf("resolving output path: %w", err)
		}
	}

	req := model.Request{
		ProjectRoots:       roots,
		ClassNames:         classes,
		SuperQualifiedName: strings.TrimSpace(opts.superName),
		OutputPath:         output,
		DryRun:             opts.dryRun,
		Verbose:            opts.verbose,
	}
	res := newRefactorer(cfg, logger).Run(req)

	if err := writeResult(stdout, res, cfg.Output); err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.ErrorMessage)
	}
	return nil
}

func newRefactorer(cfg config.Config, logger *slog.Logger) *refactor.Refactorer {
	return refactor.New(
		refactor.WithLogger(logger),
		refactor.WithScanDepth(cfg.ScanDepth),
		refactor.WithPomIndent(cfg.PomIndent),
		refactor.WithRespectIgnore(cfg.RespectIgnore),
	)
}

func writeResult(w io.Writer, res model.Result, format string) error {
	if format == config.OutputJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		_, _ = fmt.Fprintln(w, string(data))
		return nil
	}
	_, _ = fmt.Fprintln(w, toon.Encode(res))
	return nil
}

// projectRoots splits comma-separated arguments and checks that every
// root is an existing directory.
func projectRoots(args []string) ([]string, error) {
	var roots []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			abs, err := filepath.Abs(part)
			if err != nil {
				return nil, fmt.Errorf("resolving root %s: %w", part, err)
			}
			info, err := os.Stat(abs)
			if err != nil {
				return nil, fmt.Errorf("project root: %w", err)
			}
			if !info.IsDir() {
				return nil, fmt.Errorf("%s: not a directory", abs)
			}
			roots = append(roots, abs)
		}
	}
	if len(roots) == 0 {
		return nil, errors.New("no project roots given")
	}
	return roots, nil
}

func classNames(list string) ([]string, error) {
	var names []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty class name in %q", list)
		}
		names = append(names, part)
	}
	return names, nil
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(stdout, "extractsuper %s\n", version)
		},
	}
}
