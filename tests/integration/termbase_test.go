package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/termbase/mcp-server/internal/config"
	"github.com/termbase/mcp-server/internal/llm"
	mcputil "github.com/termbase/mcp-server/internal/mcp"
	"github.com/termbase/mcp-server/internal/termbase"
)

// ========================================
// Service Lifecycle Tests
// ========================================

func TestServiceLifecycle_InitializeWithValidConfig(t *testing.T) {
	dir := t.TempDir()

	svc, _ := setupTermBase(t, dir)
	defer closeService(t, svc)

	if !svc.IsReady() {
		t.Error("Expected service to be ready after Initialize")
	}

	// Verify the persistence layout was created
	if _, err := os.Stat(filepath.Join(dir, "index")); os.IsNotExist(err) {
		t.Error("Expected index directory to be created")
	}
	if _, err := os.Stat(filepath.Join(dir, termbase.LockFilename)); os.IsNotExist(err) {
		t.Error("Expected lock file to be created")
	}
}

func TestServiceLifecycle_LockPreventsSharedBaseDir(t *testing.T) {
	dir := t.TempDir()

	first, _ := setupTermBase(t, dir)
	defer closeService(t, first)

	second, err := termbase.NewService(newSettings(dir), llm.NewFakeClient(), llm.FakeEmbedder{})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer closeService(t, second)

	err = second.Initialize(context.Background())
	if err == nil {
		t.Fatal("Expected Initialize to fail while another service holds the directory")
	}
	if !strings.Contains(err.Error(), "in use") {
		t.Errorf("Expected an 'in use' error, got: %v", err)
	}
}

func TestServiceLifecycle_ConcurrentInitialization(t *testing.T) {
	// Each service uses its own directory; all should come up cleanly.
	var wg sync.WaitGroup
	errors := make([]error, 3)
	dirs := make([]string, 3)
	for i := range dirs {
		dirs[i] = t.TempDir()
	}

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			svc, err := termbase.NewService(newSettings(dirs[idx]), llm.NewFakeClient(), llm.FakeEmbedder{})
			if err != nil {
				errors[idx] = err
				return
			}
			defer func() {
				if err := svc.Close(); err != nil {
					t.Logf("Service %d close error: %v", idx, err)
				}
			}()

			if err := svc.Initialize(context.Background()); err != nil {
				errors[idx] = fmt.Errorf("service %d init failed: %w", idx, err)
			}
		}(i)
	}

	wg.Wait()

	for i, err := range errors {
		if err != nil {
			t.Errorf("Service %d had error: %v", i, err)
		}
	}
}

func TestServiceLifecycle_GracefulShutdown(t *testing.T) {
	svc, _ := setupTermBase(t, t.TempDir())

	if err := svc.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}

	// Double close should not panic
	if err := svc.Close(); err != nil {
		t.Errorf("Second Close returned error: %v", err)
	}
}

// ========================================
// Extraction Pipeline Tests
// ========================================

func TestPipeline_ExtractInsertQueryRoundTrip(t *testing.T) {
	svc, client := setupTermBase(t, t.TempDir())
	defer closeService(t, svc)

	ctx := context.Background()

	// Extraction: the model reports one pair which is returned for review
	client.AddResponse("Term: Skyline Definition: the outline of buildings seen against the sky", nil)

	extractResult, _, err := termbase.NewExtractHandler(svc).Handle(ctx, &mcp.CallToolRequest{}, termbase.ExtractArgument{
		Text: "Postcards of the city usually show the skyline of Manhattan.",
	})
	if err != nil {
		t.Fatalf("Extract handle returned error: %v", err)
	}
	if extractResult.IsError {
		t.Fatalf("Expected extraction to succeed, got: %s", extractTextContent(extractResult))
	}

	content := extractTextContent(extractResult)
	if !strings.Contains(content, "Term: Skyline") {
		t.Fatalf("Expected the extracted pair, got: %s", content)
	}
	// Extraction must not store anything yet
	if svc.IndexedCount() != 0 {
		t.Fatalf("Expected nothing indexed after extraction, got %d", svc.IndexedCount())
	}

	// Insertion stores the reviewed pair
	insertResult, _, err := termbase.NewInsertHandler(svc).Handle(ctx, &mcp.CallToolRequest{}, termbase.InsertArgument{
		Terms: map[string]string{"Skyline": "the outline of buildings seen against the sky"},
	})
	if err != nil {
		t.Fatalf("Insert handle returned error: %v", err)
	}
	if insertResult.IsError {
		t.Fatalf("Expected insert to succeed, got: %s", extractTextContent(insertResult))
	}
	if svc.IndexedCount() != 1 {
		t.Fatalf("Expected 1 indexed document, got %d", svc.IndexedCount())
	}

	// Querying retrieves the stored pair and answers from it
	client.AddResponse("A skyline is the outline of buildings seen against the sky.", nil)

	queryResult, _, err := termbase.NewQueryHandler(svc).Handle(ctx, &mcp.CallToolRequest{}, termbase.QueryArgument{
		Question: "What is a skyline?",
	})
	if err != nil {
		t.Fatalf("Query handle returned error: %v", err)
	}
	if queryResult.IsError {
		t.Fatalf("Expected query to succeed, got: %s", extractTextContent(queryResult))
	}

	answer := extractTextContent(queryResult)
	if answer != "A skyline is the outline of buildings seen against the sky." {
		t.Errorf("Unexpected answer: %s", answer)
	}

	lastPrompt := client.MustGetLastPrompt(t)
	if !strings.Contains(lastPrompt, "Term: Skyline") {
		t.Errorf("Expected the stored pair in the prompt context, got: %s", lastPrompt)
	}
	if !strings.Contains(lastPrompt, "What is a skyline?") {
		t.Errorf("Expected the question in the prompt, got: %s", lastPrompt)
	}
}

func TestPipeline_ExtractFromFile(t *testing.T) {
	svc, client := setupTermBase(t, t.TempDir())
	defer closeService(t, svc)

	path := filepath.Join(t.TempDir(), "guide.txt")
	text := "The High Line is an elevated park built on a former rail track."
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	client.AddResponse("Term: High Line Definition: an elevated park built on a former rail track", nil)

	result, _, err := termbase.NewExtractHandler(svc).Handle(context.Background(), &mcp.CallToolRequest{}, termbase.ExtractArgument{
		Path: path,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got: %s", extractTextContent(result))
	}

	if !strings.Contains(extractTextContent(result), "Term: High Line") {
		t.Errorf("Expected the extracted pair, got: %s", extractTextContent(result))
	}
	if !strings.Contains(client.MustGetLastPrompt(t), text) {
		t.Error("Expected the file content in the extraction prompt")
	}
}

func TestPipeline_StatePersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	first, _ := setupTermBase(t, dir)
	mustHandleInsert(t, first, map[string]string{"Bodega": "a small corner grocery store"})
	closeService(t, first)

	second, _ := setupTermBase(t, dir)
	defer closeService(t, second)

	if second.IndexedCount() != 1 {
		t.Errorf("Expected the indexed document to survive a restart, got %d", second.IndexedCount())
	}

	listResult, _, err := termbase.NewListHandler(second).Handle(context.Background(), &mcp.CallToolRequest{}, termbase.ListArgument{})
	if err != nil {
		t.Fatalf("List handle returned error: %v", err)
	}
	if !strings.Contains(extractTextContent(listResult), "Term: Bodega") {
		t.Errorf("Expected the stored term after restart, got: %s", extractTextContent(listResult))
	}

	searchResult, _, err := termbase.NewSearchHandler(second).Handle(context.Background(), &mcp.CallToolRequest{}, termbase.SearchArgument{
		Query: "grocery",
	})
	if err != nil {
		t.Fatalf("Search handle returned error: %v", err)
	}
	if !strings.Contains(extractTextContent(searchResult), "Bodega") {
		t.Errorf("Expected the catalog to be rebuilt after restart, got: %s", extractTextContent(searchResult))
	}
}

// ========================================
// Tool Integration Tests
// ========================================

func TestTools_ListShowsSeededTerms(t *testing.T) {
	svc, _ := setupTermBase(t, t.TempDir())
	defer closeService(t, svc)

	result, _, err := termbase.NewListHandler(svc).Handle(context.Background(), &mcp.CallToolRequest{}, termbase.ListArgument{})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got: %s", extractTextContent(result))
	}

	content := extractTextContent(result)
	for _, term := range []string{"Manhattan", "Brooklyn", "Queens", "The Bronx", "Staten Island"} {
		if !strings.Contains(content, "Term: "+term) {
			t.Errorf("Expected seeded term %q, got: %s", term, content)
		}
	}
}

func TestTools_SearchFindsSeededDefinition(t *testing.T) {
	svc, _ := setupTermBase(t, t.TempDir())
	defer closeService(t, svc)

	result, _, err := termbase.NewSearchHandler(svc).Handle(context.Background(), &mcp.CallToolRequest{}, termbase.SearchArgument{
		Query: "ferry",
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	content := extractTextContent(result)
	if !strings.Contains(content, "Staten Island") {
		t.Errorf("Expected a match on the Staten Island definition, got: %s", content)
	}
}

func TestTools_ResetRestoresDefaults(t *testing.T) {
	svc, _ := setupTermBase(t, t.TempDir())
	defer closeService(t, svc)

	ctx := context.Background()
	mustHandleInsert(t, svc, map[string]string{"Gotham": "a nickname for New York City"})

	resetResult, _, err := termbase.NewResetHandler(svc).Handle(ctx, &mcp.CallToolRequest{}, termbase.ResetArgument{})
	if err != nil {
		t.Fatalf("Reset handle returned error: %v", err)
	}
	if resetResult.IsError {
		t.Fatalf("Expected reset to succeed, got: %s", extractTextContent(resetResult))
	}

	listResult, _, err := termbase.NewListHandler(svc).Handle(ctx, &mcp.CallToolRequest{}, termbase.ListArgument{})
	if err != nil {
		t.Fatalf("List handle returned error: %v", err)
	}
	content := extractTextContent(listResult)
	if strings.Contains(content, "Gotham") {
		t.Errorf("Expected the inserted term to be gone after reset, got: %s", content)
	}
	if !strings.Contains(content, "Term: Borough") {
		t.Errorf("Expected the seed terms after reset, got: %s", content)
	}
	if svc.IndexedCount() != 0 {
		t.Errorf("Expected an empty index after reset, got %d", svc.IndexedCount())
	}
}

func TestTools_NotReadyBeforeInitialize(t *testing.T) {
	svc, err := termbase.NewService(newSettings(t.TempDir()), llm.NewFakeClient(), llm.FakeEmbedder{})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer closeService(t, svc)

	result, _, err := termbase.NewQueryHandler(svc).Handle(context.Background(), &mcp.CallToolRequest{}, termbase.QueryArgument{
		Question: "What is NYC?",
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected error when service not ready")
	}
	if !strings.Contains(extractTextContent(result), "not available") {
		t.Errorf("Expected the not-available message, got: %s", extractTextContent(result))
	}
}

// ========================================
// MCP Server Integration Tests
// ========================================

func TestMCPServer_NoToolsWhenServiceNil(t *testing.T) {
	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:     "test-server",
		Version:  "1.0.0",
		Termbase: nil,
	})

	if server == nil {
		t.Fatal("Expected server to be created")
	}
}

func TestMCPServer_EndToEndOverInMemoryTransport(t *testing.T) {
	svc, _ := setupTermBase(t, t.TempDir())
	defer closeService(t, svc)

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:     "test-server",
		Version:  "1.0.0",
		Termbase: svc,
	})

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("Server connect failed: %v", err)
	}
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Client connect failed: %v", err)
	}
	defer func() { _ = clientSession.Close() }()

	// All six tools must be visible over the protocol
	tools, err := clientSession.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	registered := map[string]bool{}
	for _, tool := range tools.Tools {
		registered[tool.Name] = true
	}
	expected := []string{"extract_terms", "insert_terms", "query_terms", "list_terms", "search_terms", "reset_termbase"}
	for _, name := range expected {
		if !registered[name] {
			t.Errorf("Expected tool %q to be registered", name)
		}
	}

	// Round trip an insert and a listing through the protocol
	insertResult, err := clientSession.CallTool(ctx, &mcp.CallToolParams{
		Name: "insert_terms",
		Arguments: map[string]any{
			"terms": map[string]any{"Gotham": "a nickname for New York City"},
		},
	})
	if err != nil {
		t.Fatalf("CallTool insert_terms failed: %v", err)
	}
	if insertResult.IsError {
		t.Fatalf("Expected insert to succeed, got: %s", extractTextContent(insertResult))
	}
	if !strings.Contains(extractTextContent(insertResult), "Stored 1 term(s)") {
		t.Errorf("Unexpected insert response: %s", extractTextContent(insertResult))
	}

	listResult, err := clientSession.CallTool(ctx, &mcp.CallToolParams{
		Name:      "list_terms",
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("CallTool list_terms failed: %v", err)
	}
	if !strings.Contains(extractTextContent(listResult), "Term: Gotham") {
		t.Errorf("Expected the stored term in the listing, got: %s", extractTextContent(listResult))
	}
}

// ========================================
// Helper Functions
// ========================================

// newSettings returns settings pointing at baseDir, sized for fast tests
func newSettings(baseDir string) *config.Settings {
	return &config.Settings{
		Transport: "stdio",
		LLM: config.LLMSettings{
			Model:          "fake-model",
			EmbeddingModel: "fake-embedding-model",
			MaxTokens:      256,
		},
		Index: config.IndexSettings{
			BaseDir:    baseDir,
			Collection: "terms",
		},
		Extract: config.ExtractSettings{
			Instruction:  config.DefaultExtractInstruction,
			ChunkSize:    1024,
			ChunkOverlap: 20,
			MaxFileSize:  4 * 1024 * 1024,
		},
		Query: config.QuerySettings{
			TopK:        5,
			ContextSize: 4096,
		},
	}
}

// setupTermBase creates and initializes a service backed by fakes
func setupTermBase(t *testing.T, baseDir string) (*termbase.Service, *llm.FakeClient) {
	t.Helper()

	client := llm.NewFakeClient()
	svc, err := termbase.NewService(newSettings(baseDir), client, llm.FakeEmbedder{})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	return svc, client
}

// mustHandleInsert stores terms through the insert tool handler
func mustHandleInsert(t *testing.T, svc *termbase.Service, terms map[string]string) {
	t.Helper()

	result, _, err := termbase.NewInsertHandler(svc).Handle(context.Background(), &mcp.CallToolRequest{}, termbase.InsertArgument{
		Terms: terms,
	})
	if err != nil {
		t.Fatalf("Insert handle returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("Insert failed: %s", extractTextContent(result))
	}
}

// closeService closes the service and reports any errors
func closeService(t *testing.T, svc *termbase.Service) {
	t.Helper()
	if err := svc.Close(); err != nil {
		t.Errorf("Failed to close service: %v", err)
	}
}

// extractTextContent extracts text from MCP result
func extractTextContent(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
