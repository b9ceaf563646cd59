package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/bashdisplay/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from a bash_with_display result"`
	Stream string `json:"stream,omitempty" jsonschema:"stdout (default) or stderr"`
	Tail   int    `json:"tail,omitempty" jsonschema:"only return the last N lines"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if h.store == nil {
		return errorResult("Run history is disabled.")
	}

	result, err := h.store.Load(ctx, params.RunID)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			return errorResult(fmt.Sprintf("No run %s in history.", params.RunID))
		}
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	text, err := result.Stream(params.Stream)
	if err != nil {
		return errorResult(err.Error())
	}

	return textResult(formatInspectOutput(result, params.Stream, report.Tail(text, params.Tail)))
}

func formatInspectOutput(r *report.RunResult, stream, text string) string {
	if stream == "" {
		stream = report.Stdout
	}
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s", r.ID, r.State)
	if r.Tier != "" {
		fmt.Fprintf(&b, ", %s", r.Tier)
	} else {
		fmt.Fprintf(&b, ", exit %d", r.ExitCode)
	}
	fmt.Fprintln(&b, ")")
	fmt.Fprintf(&b, "Started: %s (%s)\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.Duration.Round(1e6))
	if len(r.Images) > 0 {
		fmt.Fprintf(&b, "Images: %s\n", strings.Join(r.Images, ", "))
	}
	if r.Truncated {
		fmt.Fprintln(&b, "Output was truncated.")
	}
	fmt.Fprintln(&b)

	if text == "" {
		fmt.Fprintf(&b, "(no %s)\n", stream)
		return b.String()
	}
	fmt.Fprintf(&b, "%s:\n", stream)
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(&b)
	}
	return b.String()
}
