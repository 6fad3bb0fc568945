package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/termbase/mcp-server/internal/termbase"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name     string
	Version  string
	Termbase *termbase.Service
}

// CreateServer creates the MCP server and registers the term base tools.
// A nil Termbase produces a server without tools, which keeps the process
// alive for health checks while the operator fixes the configuration.
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Termbase != nil {
		termbase.RegisterTools(s, cfg.Termbase)
	}

	return s
}
