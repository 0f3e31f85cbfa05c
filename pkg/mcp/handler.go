package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/ericksa/legalese/internal/audit"
	"github.com/ericksa/legalese/internal/workers"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// ErrToolNotFound is returned by ExecuteTool for names no worker owns.
var ErrToolNotFound = errors.New("tool not found")

type Worker interface {
	GetTools() []workers.ToolDef
	Execute(ctx context.Context, name string, input json.RawMessage) ([]byte, error)
}

type ToolInfo struct {
	Name        string `json:"name"`
	Worker      string `json:"worker"`
	Description string `json:"description"`
}

type Handler struct {
	audit   *audit.Auditor
	workers map[string]Worker
	server  *mcp.Server
	http    http.Handler
	logger  *zap.Logger
}

// NewHandler exposes every worker's tools as "<worker>_<tool>" over MCP. Nil
// workers are skipped so optional backends can be passed unconditionally.
func NewHandler(ws map[string]Worker, auditor *audit.Auditor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		audit:   auditor,
		workers: make(map[string]Worker, len(ws)),
		logger:  logger,
	}
	for name, w := range ws {
		if w == nil {
			continue
		}
		h.workers[name] = w
	}

	h.initMCPServer()
	return h
}

func (h *Handler) initMCPServer() {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "Legalese Contract Review",
		Version: "1.0.0",
	}, nil)

	for _, tool := range h.Tools() {
		server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: &jsonschema.Schema{Type: "object"},
		}, h.wrapTool(tool.Name))
	}

	h.server = server
	h.http = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}

func (h *Handler) wrapTool(toolName string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}
		result, err := h.ExecuteTool(ctx, toolName, args)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{
					&mcp.TextContent{Text: err.Error()},
				},
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(result)},
			},
		}, nil
	}
}

// Server returns the underlying MCP server, e.g. for a stdio transport.
func (h *Handler) Server() *mcp.Server {
	return h.server
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.http == nil {
		http.Error(w, "MCP server not initialized", http.StatusInternalServerError)
		return
	}
	h.http.ServeHTTP(w, r)
}

// Tools lists every exposed tool sorted by name.
func (h *Handler) Tools() []ToolInfo {
	var tools []ToolInfo
	for name, worker := range h.workers {
		for _, tool := range worker.GetTools() {
			tools = append(tools, ToolInfo{
				Name:        name + "_" + tool.Name,
				Worker:      name,
				Description: tool.Description,
			})
		}
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

func (h *Handler) ExecuteTool(ctx context.Context, toolName string, args json.RawMessage) ([]byte, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	for name, worker := range h.workers {
		prefix := name + "_"
		if len(toolName) > len(prefix) && strings.HasPrefix(toolName, prefix) {
			result, err := worker.Execute(ctx, toolName[len(prefix):], args)
			h.audit.Log(toolName, args, result, err)
			if err != nil {
				h.logger.Warn("tool failed", zap.String("tool", toolName), zap.Error(err))
			}
			return result, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrToolNotFound, toolName)
}
