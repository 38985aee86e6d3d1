package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/sjson"

	"github.com/tansive/francine/internal/common/httpx"
	"github.com/tansive/francine/internal/francine/tools"
)

// MCPEndpoint serves the tool registry as an MCP server over single
// JSON-RPC POSTs. Calls go through the invoker, so they get the same
// validation, timeouts and result formatting as agent calls.
type MCPEndpoint struct {
	server *mcpserver.MCPServer
}

// NewMCPEndpoint registers every tool in registry.
func NewMCPEndpoint(ctx context.Context, registry *tools.Registry, runner ToolRunner) *MCPEndpoint {
	srv := mcpserver.NewMCPServer(
		"francine-mcp-server",
		Version,
		mcpserver.WithToolCapabilities(false),
	)
	for _, spec := range registry.Specs() {
		tool := mcp.Tool{
			Name:           spec.Name,
			Description:    spec.Description,
			RawInputSchema: spec.Parameters,
		}
		srv.AddTool(tool, callHandler(runner))
	}
	log.Ctx(ctx).Info().Int("numTools", len(registry.Specs())).Msg("loaded mcp tools")
	return &MCPEndpoint{server: srv}
}

func callHandler(runner ToolRunner) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.Params.Name
		args, ok := req.Params.Arguments.(map[string]any)
		if !ok && req.Params.Arguments != nil {
			return errorResult("invalid input arguments"), nil
		}
		log.Ctx(ctx).Info().Str("toolName", name).Msg("mcp tool call")
		out := runner.Invoke(ctx, name, args)
		if !out.Success {
			return errorResult(out.ErrorMessage), nil
		}
		content := []mcp.Content{mcp.TextContent{Type: "text", Text: out.Text}}
		if payload, err := resultPayload(name, out.Value, out.Duration.Milliseconds()); err == nil {
			content = append(content, mcp.TextContent{Type: "text", Text: payload})
		}
		return &mcp.CallToolResult{Content: content}, nil
	}
}

// resultPayload renders {"tool", "duration_ms", "value"} for clients that
// want the raw value rather than the summary text.
func resultPayload(tool string, value any, durationMS int64) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	doc, _ := sjson.Set(`{}`, "tool", tool)
	doc, _ = sjson.Set(doc, "duration_ms", durationMS)
	return sjson.SetRaw(doc, "value", string(raw))
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: msg}},
	}
}

// ServeHTTP handles one JSON-RPC message. Notifications get 202 and no body.
func (e *MCPEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		httpx.SendError(w, ErrBadRequest.Msg("invalid JSON"))
		return
	}
	resp := e.server.HandleMessage(r.Context(), raw)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, resp)
}
