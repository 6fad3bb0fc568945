package termbase

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/termbase/mcp-server/internal/domain"
)

// ExtractArgument defines term extraction parameters.
type ExtractArgument struct {
	Text        string `json:"text,omitempty" jsonschema_description:"Raw text to extract terms from"`
	Path        string `json:"path,omitempty" jsonschema_description:"Path to a local text file or image (png, jpg, jpeg) to extract terms from"`
	Instruction string `json:"instruction,omitempty" jsonschema_description:"Custom extraction instruction; defaults to asking for Term/Definition lines"`
}

// ExtractHandler handles the extract_terms MCP tool.
type ExtractHandler struct {
	service *Service
}

// NewExtractHandler creates a new extract handler.
func NewExtractHandler(service *Service) *ExtractHandler {
	return &ExtractHandler{
		service: service,
	}
}

// Handle runs term extraction and returns the pairs without storing them.
func (h *ExtractHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ExtractArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return errorResult(notReadyMessage), nil, nil
	}

	hasText := strings.TrimSpace(args.Text) != ""
	hasPath := strings.TrimSpace(args.Path) != ""
	if hasText == hasPath {
		return errorResult("Provide exactly one of 'text' or 'path'"), nil, nil
	}

	var (
		terms domain.TermSet
		err   error
	)
	if hasText {
		terms, err = h.service.ExtractFromText(ctx, args.Text, args.Instruction)
	} else {
		terms, err = h.service.ExtractFromFile(ctx, strings.TrimSpace(args.Path), args.Instruction)
	}
	if err != nil {
		return errorResult(fmt.Sprintf("Extraction failed: %s", err)), nil, nil
	}

	if len(terms) == 0 {
		return textResult("No terms were extracted. Try a different instruction or a richer input."), nil, nil
	}

	text := fmt.Sprintf("Extracted %d term(s). Review them and store with insert_terms:\n\n%s",
		len(terms), formatEntries(terms.Entries()))
	return textResult(text), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ExtractHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "extract_terms",
		Description: "Extract term/definition pairs from raw text, a text file, or an image. Results are returned for review and are not stored.",
	}
}

// RegisterExtractTool registers the extract tool with an MCP server.
func RegisterExtractTool(server *mcp.Server, service *Service) {
	handler := NewExtractHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
