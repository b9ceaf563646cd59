package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/bashdisplay"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type infoParams struct{}

func (h *handler) infoHandler(ctx context.Context, req *mcp.CallToolRequest, _ infoParams) (*mcp.CallToolResult, any, error) {
	h.mu.Lock()
	r := *h.runner
	h.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "bashdisplay %s\n", bashdisplay.Version)

	dir := r.Dir
	path, lookErr := r.LookPath()

	if lookErr != nil {
		fmt.Fprintf(&b, "Interpreter: not found (%v)\n", lookErr)
	} else {
		fmt.Fprintf(&b, "Interpreter: %s\n", path)
		res, err := r.Run(ctx, []byte("echo \"$BASH_VERSION\"\n"))
		if err == nil && res.ExitCode == 0 {
			fmt.Fprintf(&b, "Version: %s\n", strings.TrimSpace(string(res.Stdout)))
		}
	}

	if dir == "" {
		dir = "(server working directory)"
	}
	fmt.Fprintf(&b, "Directory: %s\n", dir)
	fmt.Fprintf(&b, "History: %s\n", h.history)

	return textResult(b.String())
}
