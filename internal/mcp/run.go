package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/bashdisplay/internal/cell"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type runParams struct {
	Cell string `json:"cell" jsonschema:"bash script to run. Call display <file> to attach an image."`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	var stdout, stderr, notice strings.Builder
	var images []mcp.Content
	env := cell.Env{
		Stdout: &stdout,
		Stderr: &stderr,
		Notice: &notice,
		Display: cell.RendererFunc(func(img *cell.Image) error {
			images = append(images, &mcp.ImageContent{Data: img.Data, MIMEType: img.MIMEType})
			return nil
		}),
	}

	out, err := h.magic().Run(ctx, params.Cell, env)
	if err != nil {
		return errorResult(fmt.Sprintf("%s failed: %v", RunTool, err))
	}

	var content []mcp.Content
	if notice.Len() > 0 {
		content = append(content, &mcp.TextContent{Text: notice.String()})
	}
	content = append(content, images...)
	if stdout.Len() > 0 {
		content = append(content, &mcp.TextContent{Text: stdout.String()})
	}
	if stderr.Len() > 0 {
		content = append(content, &mcp.TextContent{Text: "stderr:\n" + stderr.String()})
	}
	if trailer := formatRunTrailer(out); trailer != "" {
		content = append(content, &mcp.TextContent{Text: trailer})
	}
	return &mcp.CallToolResult{Content: content}, nil, nil
}

// formatRunTrailer describes the run and how to inspect it again.
func formatRunTrailer(out *cell.Outcome) string {
	if out.RunID == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", out.RunID)
	fmt.Fprintf(&b, "State: %s", out.State)
	if out.Tier != 0 {
		fmt.Fprintf(&b, " (%s)", out.Tier)
	} else {
		fmt.Fprintf(&b, " (exit %d)", out.ExitCode)
	}
	fmt.Fprintln(&b)
	if len(out.Images) > 0 {
		fmt.Fprintf(&b, "Images: %s\n", strings.Join(out.Images, ", "))
	}
	return b.String()
}
