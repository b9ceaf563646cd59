// Package mcp hosts the bash_with_display magic in an MCP server: the tool
// call carries the cell, the tool result carries its output and images.
package mcp

import (
	"context"
	_ "embed"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/bashdisplay"
	"github.com/deixis/bashdisplay/internal/cell"
	"github.com/deixis/bashdisplay/internal/config"
	"github.com/deixis/bashdisplay/internal/logging"
	"github.com/deixis/bashdisplay/internal/metrics"
	"github.com/deixis/bashdisplay/internal/report"
	"github.com/deixis/bashdisplay/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// Tool names registered by Load.
const (
	RunTool     = cell.Name
	InspectTool = "bash_inspect"
	InfoTool    = "bash_info"
)

// Deps are the collaborators the tools share. Store and Metrics may be nil.
type Deps struct {
	Runner  *runner.Runner
	Images  *cell.ImageLoader
	Store   report.Store
	History string // human-readable description of Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu      sync.Mutex // guards runner and images
	runner  *runner.Runner
	images  *cell.ImageLoader
	store   report.Store
	history string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func newHandler(deps Deps) *handler {
	h := &handler{
		runner:  deps.Runner,
		images:  deps.Images,
		store:   deps.Store,
		history: deps.History,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
	if h.runner == nil {
		h.runner = &runner.Runner{}
	}
	if h.images == nil {
		h.images = cell.NewImageLoader(h.runner.Dir)
	}
	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	if h.history == "" {
		h.history = "disabled"
		if h.store != nil {
			h.history = "enabled"
		}
	}
	return h
}

// NewServer creates an MCP server with the magic's tools registered. The
// workspace follows the first root advertised by the client.
func NewServer(deps Deps) *mcp.Server {
	h := newHandler(deps)

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "bashdisplay", Version: bashdisplay.Version}, opts)
	h.register(s)
	return s
}

// Load registers the magic's tools on an existing server. It is the
// extension load hook and must be called once per server.
func Load(s *mcp.Server, deps Deps) {
	newHandler(deps).register(s)
}

// Unload is the extension unload hook. It does nothing; tools registered
// by Load stay available until the server stops.
func Unload(*mcp.Server) {}

func (h *handler) register(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: RunTool,
		Description: `Run a bash cell and return its output and any images it displays.

Call "display <file>" inside the script to attach a PNG, JPEG or GIF image.
Each call starts a fresh bash process. Cancelling the call interrupts the script.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: InspectTool,
		Description: `Re-read the stdout or stderr of an earlier bash_with_display run.

Use the run_id printed at the end of a bash_with_display result.`,
	}, h.inspectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        InfoTool,
		Description: "Show the bash interpreter, its version and the working directory used for cells.",
	}, h.infoHandler)
}

// magic returns a Magic bound to a snapshot of the current workspace.
func (h *handler) magic() *cell.Magic {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := *h.runner
	images := *h.images
	return &cell.Magic{
		Runner:  &r,
		Images:  &images,
		Store:   h.store,
		Metrics: h.metrics,
		Logger:  h.logger,
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and moves the
// working directory to the first file root, reloading its config.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		h.logger.Warn("loading workspace config", "workspace", workspace, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.runner.Dir = workspace
	h.runner.MaxOutput = loaded.Config.MaxOutputBytes()
	h.images.Dir = workspace
	h.logger.Debug("workspace from roots", "workspace", workspace)
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
