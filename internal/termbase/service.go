// Package termbase owns the aggregate term set and coordinates extraction,
// indexing, lookup, and question answering behind the MCP tools.
package termbase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/termbase/mcp-server/internal/answer"
	"github.com/termbase/mcp-server/internal/config"
	"github.com/termbase/mcp-server/internal/domain"
	"github.com/termbase/mcp-server/internal/extract"
	"github.com/termbase/mcp-server/internal/index"
	"github.com/termbase/mcp-server/internal/llm"
	"github.com/termbase/mcp-server/internal/reader"
)

// LockFilename is the name of the directory ownership lock file
const LockFilename = "termbase.lock"

// Service coordinates term extraction, the vector index, the keyword
// catalog, and the persisted aggregate term set.
type Service struct {
	settings  *config.Settings
	extractor *extract.Extractor
	answerer  *answer.Answerer
	manager   *index.Manager
	loader    *reader.Loader
	catalog   *Catalog
	lock      *FileLock

	mu       sync.RWMutex
	handle   *index.Handle
	snapshot *Snapshot
	terms    domain.TermSet
	ready    bool
}

// NewService creates a new term base service. The service is inert until
// Initialize succeeds.
func NewService(settings *config.Settings, client llm.Client, embedder llm.Embedder) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}
	if client == nil {
		return nil, fmt.Errorf("model client cannot be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}

	// Ensure base directory exists
	if err := os.MkdirAll(settings.Index.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	catalog, err := NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to create term catalog: %w", err)
	}

	return &Service{
		settings:  settings,
		extractor: extract.NewExtractor(client, settings.Extract),
		answerer:  answer.New(client, settings.Query),
		manager:   index.NewManager(settings.Index, embedder, settings.LLM.EmbeddingModel),
		loader:    reader.NewLoader(settings.Extract.MaxFileSize),
		catalog:   catalog,
		lock:      NewFileLock(filepath.Join(settings.Index.BaseDir, LockFilename)),
		terms:     make(domain.TermSet),
	}, nil
}

// Initialize claims the base directory, opens the vector index, and restores
// the aggregate term set from the snapshot (seeding defaults when empty).
func (s *Service) Initialize(ctx context.Context) error {
	acquired, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("term base directory %s is in use by another process", s.settings.Index.BaseDir)
	}

	handle, err := s.manager.GetOrLoad(s.settings.Index.Collection)
	if err != nil {
		s.releaseLock()
		return fmt.Errorf("failed to open term index: %w", err)
	}

	snapshot, err := LoadSnapshot(s.snapshotPath())
	if err != nil {
		s.releaseLock()
		return fmt.Errorf("failed to load term snapshot: %w", err)
	}

	terms := snapshot.GetTerms()
	if len(terms) == 0 {
		slog.InfoContext(ctx, "Seeding term base with default terms", "count", len(DefaultTerms))
		terms = DefaultTermSet()
	}

	if err := s.catalog.Rebuild(terms); err != nil {
		s.releaseLock()
		return fmt.Errorf("failed to build term catalog: %w", err)
	}

	s.mu.Lock()
	s.handle = handle
	s.snapshot = snapshot
	s.terms = terms
	s.ready = true
	s.mu.Unlock()

	slog.InfoContext(ctx, "Term base ready", "terms", len(terms), "indexed_documents", handle.Count())
	return nil
}

// ExtractFromText runs term extraction over a raw text snippet.
// The result is not stored; call InsertTerms to persist it.
func (s *Service) ExtractFromText(ctx context.Context, text, instruction string) (domain.TermSet, error) {
	return s.extractor.Extract(ctx, []domain.Document{reader.FromText(text)}, instruction)
}

// ExtractFromFile loads the file at path (running OCR for images) and runs
// term extraction over its content.
func (s *Service) ExtractFromFile(ctx context.Context, path, instruction string) (domain.TermSet, error) {
	doc, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(ctx, []domain.Document{doc}, instruction)
}

// InsertTerms indexes every pair as its own document and merges the pairs
// into the aggregate set. Pairs are processed in term order; on failure the
// pairs already indexed stay committed and merged, the rest are skipped.
// Returns the number of pairs stored.
func (s *Service) InsertTerms(ctx context.Context, terms domain.TermSet) (int, error) {
	handle, err := s.requireHandle()
	if err != nil {
		return 0, err
	}

	inserted := make(domain.TermSet)
	var insertErr error
	for _, entry := range terms.Entries() {
		doc := domain.Document{
			Name:    entry.Term,
			Content: entry.IndexedText(),
		}
		if _, err := handle.Insert(ctx, doc); err != nil {
			insertErr = fmt.Errorf("indexing term %q: %w", entry.Term, err)
			break
		}
		inserted[entry.Term] = entry.Definition
	}

	if len(inserted) > 0 {
		if mergeErr := s.mergeTerms(inserted); mergeErr != nil && insertErr == nil {
			insertErr = mergeErr
		}
	}

	slog.DebugContext(ctx, "Stored terms", "requested", len(terms), "stored", len(inserted))
	return len(inserted), insertErr
}

// mergeTerms folds incoming pairs into the aggregate set, the catalog, and
// the on-disk snapshot. Incoming definitions win on collision.
func (s *Service) mergeTerms(incoming domain.TermSet) error {
	s.mu.Lock()
	s.terms = domain.MergeTerms(s.terms, incoming)
	merged := s.terms
	snapshot := s.snapshot
	s.mu.Unlock()

	for _, entry := range incoming.Entries() {
		if err := s.catalog.Put(entry); err != nil {
			return fmt.Errorf("updating term catalog: %w", err)
		}
	}

	snapshot.SetTerms(merged)
	if err := snapshot.Save(s.snapshotPath()); err != nil {
		return fmt.Errorf("saving term snapshot: %w", err)
	}
	return nil
}

// Answer answers a question from the indexed term context, falling back to
// the model's general knowledge when the index has nothing relevant.
func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	handle, err := s.requireHandle()
	if err != nil {
		return "", err
	}
	return s.answerer.Answer(ctx, handle, question)
}

// Terms returns an independent copy of the aggregate term set.
func (s *Service) Terms() domain.TermSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.terms.Clone()
}

// SearchTerms looks up stored terms in the keyword catalog.
func (s *Service) SearchTerms(queryStr string, limit int) ([]CatalogHit, error) {
	if !s.IsReady() {
		return nil, fmt.Errorf("term base not ready")
	}
	return s.catalog.Search(queryStr, limit)
}

// IndexedCount returns the number of documents in the vector index.
func (s *Service) IndexedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.Count()
}

// Reset drops every indexed document and restores the default term set.
func (s *Service) Reset(ctx context.Context) error {
	handle, err := s.requireHandle()
	if err != nil {
		return err
	}

	if err := handle.Reset(ctx); err != nil {
		return fmt.Errorf("resetting term index: %w", err)
	}

	terms := DefaultTermSet()
	if err := s.catalog.Rebuild(terms); err != nil {
		return fmt.Errorf("rebuilding term catalog: %w", err)
	}

	s.mu.Lock()
	s.terms = terms
	snapshot := s.snapshot
	s.mu.Unlock()

	snapshot.SetTerms(terms)
	if err := snapshot.Save(s.snapshotPath()); err != nil {
		return fmt.Errorf("saving term snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Term base reset", "terms", len(terms))
	return nil
}

// IsReady returns true if the service finished initialization.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Close releases the catalog and the directory lock.
func (s *Service) Close() error {
	s.mu.Lock()
	s.ready = false
	s.handle = nil
	s.mu.Unlock()

	if err := s.catalog.Close(); err != nil {
		return fmt.Errorf("failed to close term catalog: %w", err)
	}
	if s.lock.IsLocked() {
		if err := s.lock.Unlock(); err != nil {
			return fmt.Errorf("failed to release lock: %w", err)
		}
	}
	return nil
}

// requireHandle returns the index handle or an error when the service has
// not finished initialization.
func (s *Service) requireHandle() (*index.Handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready || s.handle == nil {
		return nil, fmt.Errorf("term base not ready")
	}
	return s.handle, nil
}

func (s *Service) snapshotPath() string {
	return filepath.Join(s.settings.Index.BaseDir, SnapshotFilename)
}

func (s *Service) releaseLock() {
	if err := s.lock.Unlock(); err != nil {
		slog.Error("Failed to release lock", "error", err)
	}
}
