package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func rpc(t *testing.T, s *Server, body string) (int, gjson.Result) {
	t.Helper()
	rsp := executeTestRequest(t, s, newRequest(t, "POST", "/mcp", body))
	return rsp.Code, gjson.Parse(rsp.Body.String())
}

func TestMCPEndpoint(t *testing.T) {
	s := newTestServer(t, testOptions(t))

	code, out := rpc(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "francine-mcp-server", out.Get("result.serverInfo.name").String())
	assert.Equal(t, Version, out.Get("result.serverInfo.version").String())

	code, _ = rpc(t, s, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, code)

	code, out = rpc(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.Equal(t, http.StatusOK, code)
	var names []string
	for _, tool := range out.Get("result.tools").Array() {
		names = append(names, tool.Get("name").String())
	}
	assert.ElementsMatch(t, []string{"echo", "lookup"}, names)
	assert.Equal(t, "string", out.Get(`result.tools.#(name=="echo").inputSchema.properties.text.type`).String())

	code, out = rpc(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, out.Get("result.isError").Bool())
	assert.Equal(t, "you said hi", out.Get("result.content.0.text").String())
	payload := gjson.Parse(out.Get("result.content.1.text").String())
	assert.Equal(t, "echo", payload.Get("tool").String())
	assert.Equal(t, "you said hi", payload.Get("value").String())

	code, out = rpc(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, out.Get("result.isError").Bool())
	assert.Contains(t, out.Get("result.content.0.text").String(), "text")

	code, _ = rpc(t, s, `{"jsonrpc":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMCPDisabled(t *testing.T) {
	opts := testOptions(t)
	opts.EnableMCP = false
	s := newTestServer(t, opts)
	code, _ := rpc(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestResultPayload(t *testing.T) {
	doc, err := resultPayload("profit_calc", map[string]any{"profit": 50.0}, 12)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tool":"profit_calc","duration_ms":12,"value":{"profit":50}}`, doc)

	_, err = resultPayload("x", make(chan int), 0)
	assert.Error(t, err)
}
