// Package reader loads term extraction inputs: raw text snippets, local
// text files, and images (through OCR).
package reader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/termbase/mcp-server/internal/domain"
)

// InlineTextName is the document name used for raw text inputs.
const InlineTextName = "inline-text"

// Loader reads extraction inputs from the local filesystem.
type Loader struct {
	maxFileSize int64
	images      *ImageReader
}

// NewLoader creates a loader that rejects files larger than maxFileSize.
func NewLoader(maxFileSize int64) *Loader {
	return &Loader{
		maxFileSize: maxFileSize,
		images:      NewImageReader(),
	}
}

// NewLoaderWithExecutor creates a loader with a custom command executor (for testing).
func NewLoaderWithExecutor(maxFileSize int64, executor CommandExecutor) *Loader {
	return &Loader{
		maxFileSize: maxFileSize,
		images:      NewImageReaderWithExecutor(executor),
	}
}

// FromText wraps a raw text snippet in a document.
func FromText(text string) domain.Document {
	return domain.Document{
		ID:      uuid.NewString(),
		Name:    InlineTextName,
		Content: text,
	}
}

// Load reads the file at path into a document. Images are run through OCR,
// everything else is read as text. Directories, binary files, and files
// above the size limit are rejected.
func (l *Loader) Load(ctx context.Context, path string) (domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return domain.Document{}, fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() > l.maxFileSize {
		return domain.Document{}, fmt.Errorf("%s exceeds the %d byte size limit", path, l.maxFileSize)
	}

	if IsImage(path) {
		text, err := l.images.Read(ctx, path)
		if err != nil {
			return domain.Document{}, err
		}
		return newFileDocument(path, text), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if IsBinary(content) {
		return domain.Document{}, fmt.Errorf("%s appears to be a binary file", path)
	}

	return newFileDocument(path, string(content)), nil
}

func newFileDocument(path, content string) domain.Document {
	return domain.Document{
		ID:      uuid.NewString(),
		Name:    filepath.Base(path),
		Content: content,
	}
}

// IsBinary checks if the content appears to be binary by looking for null
// bytes in the first 512 bytes. This is a heuristic used by git and other tools.
func IsBinary(content []byte) bool {
	checkLen := min(len(content), 512)

	for i := range checkLen {
		if content[i] == 0 {
			return true
		}
	}
	return false
}
