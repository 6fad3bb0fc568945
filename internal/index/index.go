// Package index stores term documents in an embedded vector database and
// serves similarity queries over them. Documents persist on disk across
// restarts.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/termbase/mcp-server/internal/config"
	"github.com/termbase/mcp-server/internal/domain"
	"github.com/termbase/mcp-server/internal/llm"
)

// IndexDirName is the subdirectory of the base directory holding the
// persistent vector store.
const IndexDirName = "index"

// Result is a single similarity search hit.
type Result struct {
	ID         string
	Content    string
	Similarity float32
}

// Manager opens vector index collections and memoizes open handles, so
// repeated lookups with the same configuration share one handle instead of
// reopening the store.
type Manager struct {
	settings       config.IndexSettings
	embedder       llm.Embedder
	embeddingModel string

	mu      sync.Mutex
	db      *chromem.DB
	handles map[string]*Handle
}

// NewManager creates a manager rooted at the configured base directory.
// The embedding model name participates in the handle cache key because
// vectors from different models are not comparable.
func NewManager(settings config.IndexSettings, embedder llm.Embedder, embeddingModel string) *Manager {
	return &Manager{
		settings:       settings,
		embedder:       embedder,
		embeddingModel: embeddingModel,
		handles:        make(map[string]*Handle),
	}
}

// GetOrLoad returns the handle for the named collection, opening the
// persistent store and creating the collection on first use.
func (m *Manager) GetOrLoad(collection string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.Join([]string{m.settings.BaseDir, collection, m.embeddingModel}, "|")
	if handle, ok := m.handles[key]; ok {
		return handle, nil
	}

	if m.db == nil {
		persistDir := filepath.Join(m.settings.BaseDir, IndexDirName)
		if err := os.MkdirAll(persistDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}

		db, err := chromem.NewPersistentDB(persistDir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		m.db = db
	}

	embedFunc := newEmbeddingFunc(m.embedder)
	col, err := m.db.GetOrCreateCollection(collection, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %q: %w", collection, err)
	}

	handle := &Handle{
		name:       collection,
		db:         m.db,
		embedFunc:  embedFunc,
		collection: col,
	}
	m.handles[key] = handle

	slog.Info("Vector index ready", "collection", collection, "documents", col.Count())
	return handle, nil
}

// newEmbeddingFunc adapts an Embedder to the vector store's callback type.
// Passing our own function also keeps the store from falling back to its
// built-in OpenAI default.
func newEmbeddingFunc(embedder llm.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedText(ctx, text)
	}
}

// Handle is an open collection of indexed term documents.
type Handle struct {
	name      string
	db        *chromem.DB
	embedFunc chromem.EmbeddingFunc

	mu         sync.RWMutex
	collection *chromem.Collection
}

// Insert adds a single document to the collection and returns its ID.
// A document without an ID gets a generated one. Inserting an existing ID
// replaces that document.
func (h *Handle) Insert(ctx context.Context, doc domain.Document) (string, error) {
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	var metadata map[string]string
	if doc.Name != "" {
		metadata = map[string]string{"name": doc.Name}
	}

	h.mu.RLock()
	col := h.collection
	h.mu.RUnlock()

	err := col.AddDocument(ctx, chromem.Document{
		ID:       id,
		Content:  doc.Content,
		Metadata: metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to add document: %w", err)
	}

	return id, nil
}

// Query returns up to topK documents most similar to text, best match
// first. Fewer results come back when the collection holds fewer documents;
// an empty collection yields no results and no error.
func (h *Handle) Query(ctx context.Context, text string, topK int) ([]Result, error) {
	h.mu.RLock()
	col := h.collection
	h.mu.RUnlock()

	count := col.Count()
	if topK > count {
		topK = count
	}
	if topK <= 0 {
		return nil, nil
	}

	hits, err := col.Query(ctx, text, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			ID:         hit.ID,
			Content:    hit.Content,
			Similarity: hit.Similarity,
		})
	}
	return results, nil
}

// Count returns the number of documents in the collection.
func (h *Handle) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.collection.Count()
}

// Reset drops and recreates the collection, discarding every document.
func (h *Handle) Reset(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.db.DeleteCollection(h.name); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", h.name, err)
	}

	col, err := h.db.GetOrCreateCollection(h.name, nil, h.embedFunc)
	if err != nil {
		return fmt.Errorf("failed to recreate collection %q: %w", h.name, err)
	}

	h.collection = col
	slog.InfoContext(ctx, "Vector index reset", "collection", h.name)
	return nil
}
