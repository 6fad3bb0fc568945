package termbase

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// defaultSearchLimit applies when the client omits a limit.
	defaultSearchLimit = 10

	// maxSearchLimit caps the result count for a single search.
	maxSearchLimit = 100
)

// SearchArgument defines catalog lookup parameters.
type SearchArgument struct {
	Query string `json:"query" jsonschema_description:"Keywords to look up; matches on term names rank above matches inside definitions"`
	Limit int    `json:"limit,omitempty" jsonschema_description:"Maximum number of results (default 10, max 100)"`
}

// SearchHandler handles the search_terms MCP tool.
type SearchHandler struct {
	service *Service
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service *Service) *SearchHandler {
	return &SearchHandler{
		service: service,
	}
}

// Handle executes the catalog search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return errorResult(notReadyMessage), nil, nil
	}

	queryStr := strings.TrimSpace(args.Query)
	if queryStr == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	hits, err := h.service.SearchTerms(queryStr, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return formatSearchResults(hits, queryStr), nil, nil
}

// formatSearchResults formats catalog hits for the MCP response.
func formatSearchResults(hits []CatalogHit, queryStr string) *mcp.CallToolResult {
	if len(hits) == 0 {
		return textResult(fmt.Sprintf("No terms matched '%s'", queryStr))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d term(s) for '%s':\n\n", len(hits), queryStr))

	for i, hit := range hits {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, hit.Term))
		sb.WriteString(fmt.Sprintf("**Score**: %.4f\n", hit.Score))
		sb.WriteString(hit.Definition)
		sb.WriteString("\n\n")
	}

	return textResult(sb.String())
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_terms",
		Description: "Keyword search over stored terms and definitions without a model round trip",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, service *Service) {
	handler := NewSearchHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
