package termbase

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/termbase/mcp-server/internal/domain"
)

// InsertArgument defines the pairs to store.
type InsertArgument struct {
	Terms map[string]string `json:"terms" jsonschema_description:"Mapping of term to definition to store in the term base"`
}

// InsertHandler handles the insert_terms MCP tool.
type InsertHandler struct {
	service *Service
}

// NewInsertHandler creates a new insert handler.
func NewInsertHandler(service *Service) *InsertHandler {
	return &InsertHandler{
		service: service,
	}
}

// Handle stores every pair in the index and merges it into the term set.
func (h *InsertHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args InsertArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return errorResult(notReadyMessage), nil, nil
	}

	if len(args.Terms) == 0 {
		return errorResult("No terms provided"), nil, nil
	}

	terms := make(domain.TermSet, len(args.Terms))
	for term, definition := range args.Terms {
		term = strings.TrimSpace(term)
		if term == "" {
			return errorResult("Term names cannot be empty"), nil, nil
		}
		terms[term] = strings.TrimSpace(definition)
	}

	stored, err := h.service.InsertTerms(ctx, terms)
	if err != nil {
		if stored > 0 {
			return errorResult(fmt.Sprintf("Stored %d of %d term(s) before failing: %s", stored, len(terms), err)), nil, nil
		}
		return errorResult(fmt.Sprintf("Failed to store terms: %s", err)), nil, nil
	}

	return textResult(fmt.Sprintf("Stored %d term(s). The term base now holds %d term(s).",
		stored, len(h.service.Terms()))), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *InsertHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "insert_terms",
		Description: "Store term/definition pairs in the term base. Storing an existing term replaces its definition.",
	}
}

// RegisterInsertTool registers the insert tool with an MCP server.
func RegisterInsertTool(server *mcp.Server, service *Service) {
	handler := NewInsertHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
