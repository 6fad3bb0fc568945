package reader

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandExecutor abstracts external command execution for testing.
type CommandExecutor interface {
	// Run executes a command and returns its standard output.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor executes commands using os/exec.
type DefaultExecutor struct{}

// Run executes a command and returns its standard output.
func (e *DefaultExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Include stderr in error message for debugging
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// imageExtensions are the image types accepted for OCR.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ImageReader extracts text from images by shelling out to tesseract.
type ImageReader struct {
	executor CommandExecutor
}

// NewImageReader creates an ImageReader using the default command executor.
func NewImageReader() *ImageReader {
	return &ImageReader{
		executor: &DefaultExecutor{},
	}
}

// NewImageReaderWithExecutor creates an ImageReader with a custom executor (for testing).
func NewImageReaderWithExecutor(executor CommandExecutor) *ImageReader {
	return &ImageReader{
		executor: executor,
	}
}

// Read runs OCR on the image at path and returns the recognized text.
// Requires the tesseract binary on PATH.
func (r *ImageReader) Read(ctx context.Context, path string) (string, error) {
	output, err := r.executor.Run(ctx, "", "tesseract", path, "stdout")
	if err != nil {
		return "", fmt.Errorf("ocr failed for %s: %w", path, err)
	}
	return strings.TrimSpace(string(output)), nil
}
