package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
	"github.com/termbase/mcp-server/internal/config"
	"github.com/termbase/mcp-server/internal/llm"
	mcputil "github.com/termbase/mcp-server/internal/mcp"
	"github.com/termbase/mcp-server/internal/termbase"
)

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(*mcp.Server, *config.Settings) error
	CreateServer      func(*config.Settings) (*mcp.Server, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
	}
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	// Load settings
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to avoid corrupting the stdio
	// transport stream
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	slog.Info("Starting term base MCP server", "version", version)
	config.Log(settings)

	mcpServer, cleanup, err := params.CreateServer(settings)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Start server
	if settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	} else {
		slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
		return params.StartSSEServer(mcpServer, settings)
	}
}

// CreateMCPServer creates the MCP server with registered tools.
// When no LLM API key is configured, or when the term base fails to
// initialize, the server starts without tools instead of refusing to run.
func CreateMCPServer(settings *config.Settings) (*mcp.Server, func(), error) {
	var termbaseSvc *termbase.Service
	var cleanup func()

	client, err := llm.NewOpenAIClient(settings.LLM)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		slog.Warn("No LLM API key configured, starting without the term base service")
	case err != nil:
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	default:
		svc, err := termbase.NewService(settings, client, client)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create term base service: %w", err)
		}

		// Initialize in background context (not tied to request context)
		if err := svc.Initialize(context.Background()); err != nil {
			slog.Error("Term base initialization failed", "error", err)
			// Close the service on initialization failure and continue without it
			if closeErr := svc.Close(); closeErr != nil {
				slog.Error("Failed to close term base service", "error", closeErr)
			}
		} else {
			termbaseSvc = svc
			cleanup = func() {
				if err := svc.Close(); err != nil {
					slog.Error("Failed to close term base service", "error", err)
				}
			}
		}
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:     "termbase-mcp",
		Version:  "1.0.0",
		Termbase: termbaseSvc,
	})

	return server, cleanup, nil
}
