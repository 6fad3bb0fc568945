package index

import (
	"context"
	"testing"

	"github.com/termbase/mcp-server/internal/config"
	"github.com/termbase/mcp-server/internal/domain"
	"github.com/termbase/mcp-server/internal/llm"
)

func newTestManager(t *testing.T, baseDir string) *Manager {
	t.Helper()
	settings := config.IndexSettings{
		BaseDir:    baseDir,
		Collection: "terms",
	}
	return NewManager(settings, llm.FakeEmbedder{}, "fake-embedding-model")
}

func mustGetHandle(t *testing.T, m *Manager) *Handle {
	t.Helper()
	handle, err := m.GetOrLoad("terms")
	if err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}
	return handle
}

func mustInsert(t *testing.T, handle *Handle, name, content string) string {
	t.Helper()
	id, err := handle.Insert(context.Background(), domain.Document{Name: name, Content: content})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return id
}

func TestGetOrLoadMemoizesHandles(t *testing.T) {
	m := newTestManager(t, t.TempDir())

	first := mustGetHandle(t, m)
	second := mustGetHandle(t, m)

	if first != second {
		t.Error("Expected the same handle for repeated GetOrLoad calls")
	}
}

func TestGetOrLoadSeparateCollections(t *testing.T) {
	m := newTestManager(t, t.TempDir())

	first := mustGetHandle(t, m)
	second, err := m.GetOrLoad("other")
	if err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}

	if first == second {
		t.Error("Expected distinct handles for distinct collections")
	}
}

func TestInsertGeneratesID(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	handle := mustGetHandle(t, m)

	id := mustInsert(t, handle, "Foo", "Term: Foo\nDefinition: a placeholder")
	if id == "" {
		t.Error("Expected a generated document ID")
	}
	if handle.Count() != 1 {
		t.Errorf("Expected 1 document, got %d", handle.Count())
	}
}

func TestInsertKeepsExplicitID(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	handle := mustGetHandle(t, m)

	id, err := handle.Insert(context.Background(), domain.Document{
		ID:      "fixed-id",
		Content: "Term: Foo\nDefinition: a placeholder",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id != "fixed-id" {
		t.Errorf("Expected 'fixed-id', got %q", id)
	}
}

func TestQueryReturnsMostSimilarFirst(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	handle := mustGetHandle(t, m)

	wantID := mustInsert(t, handle, "Borough", "Term: Borough\nDefinition: one of five divisions of NYC")
	mustInsert(t, handle, "Manhattan", "Term: Manhattan\nDefinition: the densest borough")
	mustInsert(t, handle, "Queens", "Term: Queens\nDefinition: the largest borough by area")

	results, err := handle.Query(context.Background(), "Term: Borough\nDefinition: one of five divisions of NYC", 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 results (topK capped at count), got %d", len(results))
	}
	if results[0].ID != wantID {
		t.Errorf("Expected the exact-content document first, got %q", results[0].ID)
	}
	if results[0].Content == "" {
		t.Error("Expected result content to be populated")
	}
}

func TestQueryRespectsTopK(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	handle := mustGetHandle(t, m)

	mustInsert(t, handle, "A", "Term: A\nDefinition: first")
	mustInsert(t, handle, "B", "Term: B\nDefinition: second")
	mustInsert(t, handle, "C", "Term: C\nDefinition: third")

	results, err := handle.Query(context.Background(), "Term: A", 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}
}

func TestQueryEmptyCollection(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	handle := mustGetHandle(t, m)

	results, err := handle.Query(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Expected no error on empty collection, got: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}

func TestResetDiscardsDocuments(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	handle := mustGetHandle(t, m)

	mustInsert(t, handle, "A", "Term: A\nDefinition: first")
	mustInsert(t, handle, "B", "Term: B\nDefinition: second")

	if err := handle.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if handle.Count() != 0 {
		t.Errorf("Expected 0 documents after reset, got %d", handle.Count())
	}

	// The handle stays usable after a reset.
	mustInsert(t, handle, "C", "Term: C\nDefinition: third")
	if handle.Count() != 1 {
		t.Errorf("Expected 1 document after post-reset insert, got %d", handle.Count())
	}
}

func TestDocumentsPersistAcrossManagers(t *testing.T) {
	baseDir := t.TempDir()

	first := newTestManager(t, baseDir)
	handle := mustGetHandle(t, first)
	mustInsert(t, handle, "A", "Term: A\nDefinition: persisted")

	second := newTestManager(t, baseDir)
	reopened := mustGetHandle(t, second)

	if reopened.Count() != 1 {
		t.Fatalf("Expected 1 persisted document, got %d", reopened.Count())
	}

	results, err := reopened.Query(context.Background(), "Term: A\nDefinition: persisted", 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 || results[0].Content != "Term: A\nDefinition: persisted" {
		t.Errorf("Expected the persisted document back, got %+v", results)
	}
}
