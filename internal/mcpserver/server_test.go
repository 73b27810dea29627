package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/schemafill/internal/parser"
	"github.com/starford/schemafill/internal/schemaservice"
	"github.com/starford/schemafill/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, src := testutil.TestSchemaDir(t, map[string]string{"schema.prisma": testutil.SampleSchema})
	svc := schemaservice.NewService(src, parser.Options{}, nil)
	if _, err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(svc, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct call helper, so handlers are invoked by name.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_models":
		result, err = srv.listModels(ctx, req)
	case "get_model":
		result, err = srv.getModel(ctx, req)
	case "get_validation_schema":
		result, err = srv.getValidationSchema(ctx, req)
	case "list_enums":
		result, err = srv.listEnums(ctx, req)
	case "get_schema_language":
		result, err = srv.getSchemaLanguage(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListModels(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "list_models", map[string]any{})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var items []schemaservice.ModelSummary
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Name != "User" {
		t.Errorf("items = %+v", items)
	}
}

func TestGetModel(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_model", map[string]any{"name": "UserProfile"})
	text := resultText(r)
	if r.IsError || !strings.Contains(text, `"name": "bio"`) {
		t.Errorf("get_model = %q", text)
	}
}

func TestGetValidationSchema(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_validation_schema", map[string]any{"name": "User"})
	text := resultText(r)
	if r.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, `"required": [`) || !strings.Contains(text, `"format": "date-time"`) {
		t.Errorf("schema = %s", text)
	}
	if strings.HasSuffix(text, "\n") {
		t.Error("trailing newline not trimmed")
	}
}

func TestUnknownModel(t *testing.T) {
	srv := testServer(t)
	for _, tool := range []string{"get_model", "get_validation_schema"} {
		r := callTool(t, srv, tool, map[string]any{"name": "Ghost"})
		if !r.IsError {
			t.Errorf("%s: expected error for unknown model", tool)
		}
	}
}

func TestMissingName(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_model", map[string]any{})
	if !r.IsError {
		t.Error("expected error when name is missing")
	}
}

func TestListEnums(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "list_enums", map[string]any{})
	if got := resultText(r); got != "Role: USER, ADMIN" {
		t.Errorf("list_enums = %q", got)
	}
}

func TestSchemaLanguage(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_schema_language", nil)
	if !strings.Contains(resultText(r), "# Schema Language") {
		t.Error("language description missing")
	}

	contents, err := srv.readSchemaLanguageResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != SchemaLanguageURI {
		t.Errorf("resource = %+v", contents[0])
	}
}
