package termbase

import (
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/termbase/mcp-server/internal/domain"
)

// notReadyMessage is returned by every tool while the service is unavailable.
const notReadyMessage = "The term base is not available. Check the server logs for initialization errors and try again later."

// textResult wraps plain text in a successful tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// errorResult wraps plain text in a failed tool result.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

// formatEntries renders term/definition pairs one pair per block, in term
// order, matching the format the extraction prompt asks the model for.
func formatEntries(entries []domain.TermEntry) string {
	var sb strings.Builder
	for i, entry := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("Term: %s\nDefinition: %s\n", entry.Term, entry.Definition))
	}
	return sb.String()
}

// RegisterTools registers every term base tool with the MCP server.
func RegisterTools(server *mcp.Server, service *Service) {
	RegisterExtractTool(server, service)
	RegisterInsertTool(server, service)
	RegisterQueryTool(server, service)
	RegisterListTool(server, service)
	RegisterSearchTool(server, service)
	RegisterResetTool(server, service)
}
