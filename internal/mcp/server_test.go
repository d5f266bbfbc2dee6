package mcp_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"tracekit/internal/fsys"
	mcpserver "tracekit/internal/mcp"
)

const manifestJSON = `{
  "analysis": {"id": "uniswap-v4-hooks", "title": "Uniswap v4 Hook Adoption", "subtitle": "Hooks", "htmlFile": "REPORT.html"},
  "repository": {"url": "https://raw.githubusercontent.com/acme/analyses", "branch": "main"},
  "metadata": {"author": "Ada", "networks": ["ethereum"], "timestampRange": {"start": "2025-01-01", "end": "2025-02-01"},
    "analysisDate": "2025-02-02", "dataSource": "Dune"}
}`

func newTestServer(t *testing.T) (*mcpserver.Server, *fsys.Mem) {
	t.Helper()
	mem := fsys.NewMem()
	mem.WriteFile("a/REPORT.html", []byte("<h1>r</h1>{{VISUAL_01_PLACEHOLDER}}"))
	mem.WriteFile("a/visuals/01_volume.html", []byte("<div>chart</div>"))
	mem.WriteFile("a/trace-metadata.json", []byte(manifestJSON))
	srv := mcpserver.NewServer(mem, nil)
	srv.ProjectRoot = ""
	return srv, mem
}

func connectInMemory(t *testing.T, ctx context.Context, srv *mcpserver.Server) *sdkmcp.ClientSession {
	t.Helper()
	t1, t2 := sdkmcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer.Connect(ctx, t1, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) (map[string]any, bool, string) {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	var text string
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			text = tc.Text
			break
		}
	}
	if res.IsError {
		return nil, true, text
	}
	result := make(map[string]any)
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		t.Fatalf("unmarshal tool result: %v (text: %s)", err, text)
	}
	return result, false, text
}

func TestServer_ListTools(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, name := range []string{"substitute", "validate", "assemble", "manifest_url"} {
		if !names[name] {
			t.Errorf("tool %q not found in ListTools", name)
		}
	}
}

func TestServer_Substitute(t *testing.T) {
	ctx := context.Background()
	srv, mem := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	args := map[string]any{
		"target": "a/REPORT.html",
		"token":  "{{VISUAL_01_PLACEHOLDER}}",
		"source": "a/visuals/01_volume.html",
	}
	got, isErr, text := callTool(t, ctx, session, "substitute", args)
	if isErr {
		t.Fatalf("substitute failed: %s", text)
	}
	if got["occurrences"] != 1.0 {
		t.Errorf("occurrences = %v", got["occurrences"])
	}
	if data, _ := mem.ReadFile("a/REPORT.html"); string(data) != "<h1>r</h1><div>chart</div>" {
		t.Errorf("REPORT.html = %q", data)
	}

	// The token is gone, so a second call is a tool error naming it.
	_, isErr, text = callTool(t, ctx, session, "substitute", args)
	if !isErr || !strings.Contains(text, "not found") {
		t.Errorf("second call: isErr = %v, text = %q", isErr, text)
	}
}

func TestServer_Validate(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	got, isErr, text := callTool(t, ctx, session, "validate", map[string]any{"root": "a"})
	if isErr {
		t.Fatalf("validate failed: %s", text)
	}
	if got["status"] != "fail" {
		t.Errorf("status = %v", got["status"])
	}
	findings, _ := got["findings"].([]any)
	if len(findings) == 0 {
		t.Error("expected findings for an incomplete analysis")
	}

	_, isErr, text = callTool(t, ctx, session, "validate", map[string]any{"root": "missing"})
	if !isErr || !strings.Contains(text, "not found") {
		t.Errorf("missing root: isErr = %v, text = %q", isErr, text)
	}
}

func TestServer_AssembleDryRun(t *testing.T) {
	ctx := context.Background()
	srv, mem := newTestServer(t)
	mem.WriteFile("a/assemble.yaml", []byte(`steps:
  - target: REPORT.html
    token: "{{VISUAL_01_PLACEHOLDER}}"
    source: visuals/01_volume.html
`))
	session := connectInMemory(t, ctx, srv)

	got, isErr, text := callTool(t, ctx, session, "assemble", map[string]any{"plan": "a/assemble.yaml", "dry_run": true})
	if isErr {
		t.Fatalf("assemble failed: %s", text)
	}
	if got["dry_run"] != true {
		t.Errorf("dry_run = %v", got["dry_run"])
	}
	if data, _ := mem.ReadFile("a/REPORT.html"); !strings.Contains(string(data), "{{VISUAL_01_PLACEHOLDER}}") {
		t.Error("dry run modified the report")
	}
}

func TestServer_ManifestURL(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	got, isErr, text := callTool(t, ctx, session, "manifest_url", map[string]any{"root": "a"})
	if isErr {
		t.Fatalf("manifest_url failed: %s", text)
	}
	if want := "https://raw.githubusercontent.com/acme/analyses/main/REPORT.html"; got["raw_url"] != want {
		t.Errorf("raw_url = %v, want %s", got["raw_url"], want)
	}
	if got["id"] != "uniswap-v4-hooks" {
		t.Errorf("id = %v", got["id"])
	}
}
