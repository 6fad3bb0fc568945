package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/termbase/mcp-server/internal/app"
	"github.com/termbase/mcp-server/tests/integration/testkit"
)

// ========================================
// Server Boot Tests
// ========================================

// bootServer runs the full production stack on a free port and returns the
// base URL once the health endpoint responds. The server goroutine runs for
// the remainder of the test binary; each test gets its own port and base dir.
func bootServer(t *testing.T, opts *testkit.FlagOptions, extraFlags map[string]string) string {
	t.Helper()

	flags := testkit.NewTestFlags(t, opts)
	for name, value := range extraFlags {
		if err := flags.Set(name, value); err != nil {
			t.Fatalf("Failed to set flag %s: %v", name, err)
		}
	}

	port, err := flags.GetInt("port")
	if err != nil {
		t.Fatalf("Failed to read port flag: %v", err)
	}
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.RunWithDeps(context.Background(), app.DefaultRunParams(), flags, "integration-test")
	}()

	deadline := time.Now().Add(5 * time.Second)
	client := &http.Client{Timeout: time.Second}
	for time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			t.Fatalf("Server exited during startup: %v", err)
		default:
		}

		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return baseURL
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatalf("Server did not become healthy within the deadline")
	return ""
}

func TestServerBoot_HealthEndpoint(t *testing.T) {
	baseURL := bootServer(t,
		&testkit.FlagOptions{IndexBaseDir: t.TempDir()},
		map[string]string{"llm-api-key": "test-key"},
	)

	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Expected body 'ok', got %q", string(body))
	}
}

func TestServerBoot_APIKeyAuthGuardsSSE(t *testing.T) {
	baseURL := bootServer(t,
		&testkit.FlagOptions{AuthType: "apikey", IndexBaseDir: t.TempDir()},
		map[string]string{"auth-api-keys": "integration-key"},
	)

	client := &http.Client{Timeout: 2 * time.Second}

	// Without a key the SSE endpoint rejects the request.
	resp, err := client.Get(baseURL + "/sse")
	if err != nil {
		t.Fatalf("SSE request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without a key, got %d", resp.StatusCode)
	}

	// With the key the stream opens.
	req, err := http.NewRequest(http.MethodGet, baseURL+"/sse", nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("X-API-Key", "integration-key")

	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("Authenticated SSE request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		t.Error("Expected the valid key to be accepted")
	}
}
