package termbase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/termbase/mcp-server/internal/domain"
)

const (
	// SnapshotVersion is the current schema version
	SnapshotVersion = 1

	// SnapshotFilename is the default snapshot filename
	SnapshotFilename = "terms.json"
)

// Snapshot persists the aggregate term set across restarts. The vector
// index keeps its own files; the snapshot is the source of truth for the
// term-to-definition mapping.
type Snapshot struct {
	Version   int            `json:"version"`
	UpdatedAt time.Time      `json:"updated_at"`
	Terms     domain.TermSet `json:"terms"`
	mu        sync.RWMutex   `json:"-"`
}

// NewSnapshot creates a new empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version: SnapshotVersion,
		Terms:   make(domain.TermSet),
	}
}

// LoadSnapshot reads a snapshot from disk, or creates a new one if it doesn't exist.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewSnapshot(), nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	if snapshot.Terms == nil {
		snapshot.Terms = make(domain.TermSet)
	}

	return &snapshot, nil
}

// Save writes the snapshot to disk atomically.
// Uses write-to-temp + rename pattern to prevent corruption.
func (s *Snapshot) Save(path string) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	return nil
}

// SetTerms replaces the stored term set and stamps the update time.
func (s *Snapshot) SetTerms(terms domain.TermSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Terms = terms.Clone()
	s.UpdatedAt = time.Now()
}

// GetTerms returns an independent copy of the stored term set.
func (s *Snapshot) GetTerms() domain.TermSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Terms.Clone()
}

// IsEmpty returns true if the snapshot holds no terms.
func (s *Snapshot) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Terms) == 0
}
