// Package mcp serves the extract_superclass tool over the Model Context
// Protocol on stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/phobologic/extractsuper/internal/logging"
	"github.com/phobologic/extractsuper/internal/model"
)

const serverName = "extractsuper"

// Runner executes one refactoring request.
type Runner interface {
	Run(req model.Request) model.Result
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(req model.Request) model.Result

// Run calls f(req).
func (f RunnerFunc) Run(req model.Request) model.Result {
	return f(req)
}

// Server is the MCP server exposing extract_superclass.
type Server struct {
	runner Runner
	logger *slog.Logger
	mcp    *sdk.Server
}

// NewServer creates a server with the extract_superclass tool registered.
func NewServer(version string, runner Runner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		runner: runner,
		logger: logger,
		mcp: sdk.NewServer(
			&sdk.Implementation{
				Name:    serverName,
				Version: version,
			},
			nil,
		),
	}
	s.mcp.AddTool(extractSuperclassTool(), s.callExtract)
	return s
}

// Run serves on transport until the client disconnects or ctx is canceled.
func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	err := s.mcp.Run(ctx, transport)
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("mcp: serve: %w", err)
}

// Serve runs the server over newline-delimited JSON-RPC on in and out.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return s.Run(ctx, &sdk.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	})
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// callOutput is the structured content of a tool result.
type callOutput struct {
	Success                 bool     `json:"success"`
	SuperclassQualifiedName string   `json:"superclassQualifiedName,omitempty"`
	ModifiedFiles           []string `json:"modifiedFiles"`
	ExecutionTimeMs         int64    `json:"executionTimeMs"`
	Error                   string   `json:"error,omitempty"`
}

func (s *Server) callExtract(_ context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	args := map[string]json.RawMessage{}
	if req.Params != nil && len(req.Params.Arguments) > 0 && string(req.Params.Arguments) != "null" {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return s.invalidArguments(errors.New("arguments must be a JSON object")), nil
		}
	}
	r, err := parseArguments(args)
	if err != nil {
		return s.invalidArguments(err), nil
	}

	s.logger.Debug("tool call", "tool", toolName, "roots", r.ProjectRoots, "classes", r.ClassNames, "dry_run", r.DryRun)
	res := s.runner.Run(r)
	files := res.ModifiedFiles
	if files == nil {
		files = []string{}
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: summarize(res, r.DryRun)}},
		IsError: !res.Success,
		StructuredContent: callOutput{
			Success:                 res.Success,
			SuperclassQualifiedName: res.SuperclassQualifiedName,
			ModifiedFiles:           files,
			ExecutionTimeMs:         res.ElapsedMillis,
			Error:                   res.ErrorMessage,
		},
	}, nil
}

// invalidArguments reports bad arguments as a tool error so the caller
// sees the message.
func (s *Server) invalidArguments(err error) *sdk.CallToolResult {
	s.logger.Warn("invalid tool arguments", "tool", toolName, "error", err)
	msg := "invalid arguments: " + err.Error()
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: summarize(model.Result{ErrorMessage: msg}, false)}},
		IsError: true,
		StructuredContent: callOutput{
			ModifiedFiles: []string{},
			Error:         msg,
		},
	}
}
