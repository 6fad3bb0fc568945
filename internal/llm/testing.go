package llm

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

// FakeClient records prompts and returns scripted completions.
// This is exported for use in integration tests.
type FakeClient struct {
	mu        sync.Mutex
	responses []fakeResponse
	prompts   []string
}

type fakeResponse struct {
	output string
	err    error
}

// NewFakeClient creates a new fake completion client.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		responses: make([]fakeResponse, 0),
		prompts:   make([]string, 0),
	}
}

// AddResponse appends a scripted completion. Responses are consumed in order,
// one per Generate call.
func (f *FakeClient) AddResponse(output string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{output: output, err: err})
}

// Generate records the prompt and returns the next scripted response.
func (f *FakeClient) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prompts = append(f.prompts, prompt)

	if len(f.responses) == 0 {
		return "", errors.New("no fake response configured for prompt: " + prompt)
	}

	next := f.responses[0]
	f.responses = f.responses[1:]
	return next.output, next.err
}

// GetPrompts returns all recorded prompts.
func (f *FakeClient) GetPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// MustGetLastPrompt returns the last recorded prompt, fails the test if no
// calls were made.
func (f *FakeClient) MustGetLastPrompt(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		t.Fatal("Expected at least one Generate call")
	}
	return f.prompts[len(f.prompts)-1]
}

// FakeEmbedder returns deterministic vectors derived from the text content.
// Equal texts embed to equal vectors, so similarity search in tests behaves
// predictably without a network dependency.
type FakeEmbedder struct{}

// EmbedText hashes the text into a small fixed-dimension unit vector.
func (FakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	const dims = 8
	vector := make([]float32, dims)
	for i, r := range text {
		vector[i%dims] += float32(r%97) / 97.0
	}

	// Normalize so cosine similarity is well defined.
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vector[0] = 1
		return vector, nil
	}

	inv := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= inv
	}
	return vector, nil
}
