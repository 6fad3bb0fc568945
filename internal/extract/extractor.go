package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/termbase/mcp-server/internal/config"
	"github.com/termbase/mcp-server/internal/domain"
	"github.com/termbase/mcp-server/internal/llm"
)

// ErrNoDocuments indicates Extract was called without any input documents.
var ErrNoDocuments = errors.New("no documents to extract from")

// summaryFanout caps how many intermediate answers are combined per
// summarization round.
const summaryFanout = 10

// summaryTemplate asks the model to answer the extraction instruction from
// the supplied context only. It is applied to every chunk and then to every
// combination round until a single answer remains.
var summaryTemplate = prompts.NewPromptTemplate(
	"Context information from multiple sources is below.\n"+
		"---------------------\n"+
		"{{.context}}\n"+
		"---------------------\n"+
		"Given the information from multiple sources and not prior knowledge, {{.instruction}}",
	[]string{"context", "instruction"},
)

// Extractor runs the summarization pass that turns documents into
// term/definition pairs. It holds no persistent state; every call is a
// transient pass over its inputs.
type Extractor struct {
	client   llm.Client
	settings config.ExtractSettings
}

// NewExtractor creates an extractor using the given completion client.
func NewExtractor(client llm.Client, settings config.ExtractSettings) *Extractor {
	return &Extractor{
		client:   client,
		settings: settings,
	}
}

// Extract chunks the documents, queries the model with the instruction over
// every chunk, combines intermediate answers until one remains, and parses
// the final answer into a term set. An empty instruction falls back to the
// configured default. A response with no parseable lines yields an empty set
// and no error.
func (e *Extractor) Extract(ctx context.Context, documents []domain.Document, instruction string) (domain.TermSet, error) {
	if len(documents) == 0 {
		return nil, ErrNoDocuments
	}

	if instruction == "" {
		instruction = e.settings.Instruction
	}

	chunks, err := e.chunk(documents)
	if err != nil {
		return nil, fmt.Errorf("chunking documents: %w", err)
	}

	slog.DebugContext(ctx, "Extracting terms", "documents", len(documents), "chunks", len(chunks))

	answer, err := e.summarize(ctx, chunks, instruction)
	if err != nil {
		return nil, fmt.Errorf("summarizing documents: %w", err)
	}

	return ParseTerms(answer), nil
}

// chunk splits all document contents into overlapping pieces sized for a
// single model call. Documents that produce no chunks still contribute one
// empty chunk so the model is always queried at least once.
func (e *Extractor) chunk(documents []domain.Document) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(e.settings.ChunkSize),
		textsplitter.WithChunkOverlap(e.settings.ChunkOverlap),
	)

	var chunks []string
	for _, doc := range documents {
		pieces, err := splitter.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("splitting document %q: %w", doc.Name, err)
		}
		chunks = append(chunks, pieces...)
	}

	if len(chunks) == 0 {
		chunks = []string{""}
	}
	return chunks, nil
}

// summarize reduces the chunk answers bottom-up: each round combines groups
// of up to summaryFanout texts into one model call, until one answer remains.
func (e *Extractor) summarize(ctx context.Context, texts []string, instruction string) (string, error) {
	round := 0
	for {
		answers := make([]string, 0, (len(texts)+summaryFanout-1)/summaryFanout)

		for start := 0; start < len(texts); start += summaryFanout {
			end := start + summaryFanout
			if end > len(texts) {
				end = len(texts)
			}

			prompt, err := summaryTemplate.Format(map[string]any{
				"context":     strings.Join(texts[start:end], "\n\n"),
				"instruction": instruction,
			})
			if err != nil {
				return "", fmt.Errorf("formatting summary prompt: %w", err)
			}

			answer, err := e.client.Generate(ctx, prompt)
			if err != nil {
				return "", err
			}
			answers = append(answers, answer)
		}

		if len(answers) == 1 {
			return answers[0], nil
		}

		round++
		slog.DebugContext(ctx, "Combining intermediate answers", "round", round, "answers", len(answers))
		texts = answers
	}
}
