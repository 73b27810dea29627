// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the schema catalog to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/schemafill/internal/apperr"
	"github.com/starford/schemafill/internal/generator"
	"github.com/starford/schemafill/internal/models"
	"github.com/starford/schemafill/internal/schemaservice"
)

// SchemaLanguageURI identifies the schema language resource.
const SchemaLanguageURI = "schemafill://schema-language"

// Catalog is the read side of the schema service used by the tools.
type Catalog interface {
	Summaries() ([]schemaservice.ModelSummary, error)
	Model(name string) (*models.Model, error)
	ValidationSchema(name string) (*generator.ValidationSchema, error)
	Enums() ([]*models.Enum, error)
}

// Server wraps the MCP server with schema catalog tools.
type Server struct {
	mcp     *server.MCPServer
	catalog Catalog
}

// New creates a new MCP server with all tools registered.
func New(catalog Catalog, version string) *Server {
	s := &Server{catalog: catalog}

	s.mcp = server.NewMCPServer(
		"schemafill",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List every declared model with its field count, required fields, "+
			"defaulted fields and candidate storage collection names."),
	), s.listModels)

	s.mcp.AddTool(mcp.NewTool("get_model",
		mcp.WithDescription("Return the parsed declaration of one model: fields, types, "+
			"optional/array markers, attributes and resolved defaults."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Model name, case-sensitive (e.g. UserProfile)")),
	), s.getModel)

	s.mcp.AddTool(mcp.NewTool("get_validation_schema",
		mcp.WithDescription("Return the JSON validation schema generated for one model. "+
			"This is the document the convert command writes to <Model>.json."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Model name, case-sensitive")),
	), s.getValidationSchema)

	s.mcp.AddTool(mcp.NewTool("list_enums",
		mcp.WithDescription("List every declared enum and its values."),
	), s.listEnums)

	s.mcp.AddTool(mcp.NewTool("get_schema_language",
		mcp.WithDescription("Returns the description of the accepted schema language. "+
			"Read it before suggesting schema edits."),
	), s.getSchemaLanguage)

	s.mcp.AddResource(
		mcp.NewResource(SchemaLanguageURI, "Schema Language",
			mcp.WithResourceDescription("Accepted model/enum grammar and how it maps to validation schemas."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSchemaLanguageResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listModels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.catalog.Summaries()
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(items)
}

func (s *Server) getModel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.catalog.Model(name)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(m)
}

func (s *Server) getValidationSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	vs, err := s.catalog.ValidationSchema(name)
	if err != nil {
		return toolError(err), nil
	}
	out, err := vs.MarshalIndent()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.TrimSuffix(string(out), "\n")), nil
}

func (s *Server) listEnums(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	enums, err := s.catalog.Enums()
	if err != nil {
		return toolError(err), nil
	}
	if len(enums) == 0 {
		return mcp.NewToolResultText("no enums declared"), nil
	}
	lines := make([]string, 0, len(enums))
	for _, e := range enums {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Name, strings.Join(e.Values, ", ")))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getSchemaLanguage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SchemaLanguage), nil
}

func (s *Server) readSchemaLanguageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SchemaLanguageURI,
			MIMEType: "text/markdown",
			Text:     SchemaLanguage,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	case errors.Is(err, apperr.ErrNoSchema):
		return mcp.NewToolResultError("no schema loaded")
	}
	return mcp.NewToolResultError(err.Error())
}
