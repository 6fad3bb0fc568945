// Package answer composes answers to questions from indexed term context.
// Retrieved texts are packed into as few model calls as possible; follow-up
// calls refine the answer from the first one.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github.com/termbase/mcp-server/internal/config"
	"github.com/termbase/mcp-server/internal/index"
	"github.com/termbase/mcp-server/internal/llm"
)

// windowSeparator joins retrieved texts inside one context window.
const windowSeparator = "\n\n"

// qaTemplate answers a question from a single context window. The fallback
// to general knowledge lives in the prompt itself, so an empty window still
// produces a useful answer.
var qaTemplate = prompts.NewPromptTemplate(
	"Context information is below. \n"+
		"---------------------\n"+
		"{{.context}}\n"+
		"---------------------\n"+
		"Given the context information answer the following question "+
		"(if you don't know the answer, use the best of your knowledge): {{.question}}",
	[]string{"context", "question"},
)

// refineTemplate improves an existing answer with one more context window.
var refineTemplate = prompts.NewPromptTemplate(
	"The original question is as follows: {{.question}}\n"+
		"We have provided an existing answer: {{.existing}}\n"+
		"We have the opportunity to refine the existing answer "+
		"(only if needed) with some more context below.\n"+
		"------------\n"+
		"{{.context}}\n"+
		"------------\n"+
		"Given the new context and using the best of your knowledge, improve the existing answer. "+
		"If you can't improve the existing answer, just repeat it again.",
	[]string{"question", "existing", "context"},
)

// Retriever returns the indexed documents most similar to a question.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]index.Result, error)
}

// Answerer synthesizes answers from retrieved term context.
type Answerer struct {
	client   llm.Client
	settings config.QuerySettings
}

// New creates an answerer using the given completion client.
func New(client llm.Client, settings config.QuerySettings) *Answerer {
	return &Answerer{
		client:   client,
		settings: settings,
	}
}

// Answer retrieves the documents most similar to question and synthesizes
// an answer. The first context window is answered with the QA prompt, every
// following window refines the previous answer. With nothing retrieved the
// model is queried once with an empty context window.
func (a *Answerer) Answer(ctx context.Context, retriever Retriever, question string) (string, error) {
	results, err := retriever.Query(ctx, question, a.settings.TopK)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}

	texts := make([]string, 0, len(results))
	for _, result := range results {
		texts = append(texts, result.Content)
	}

	windows := packWindows(texts, a.settings.ContextSize)
	slog.DebugContext(ctx, "Synthesizing answer", "retrieved", len(results), "windows", len(windows))

	var answer string
	for i, window := range windows {
		var prompt string
		var err error

		if i == 0 {
			prompt, err = qaTemplate.Format(map[string]any{
				"context":  window,
				"question": question,
			})
		} else {
			prompt, err = refineTemplate.Format(map[string]any{
				"question": question,
				"existing": answer,
				"context":  window,
			})
		}
		if err != nil {
			return "", fmt.Errorf("formatting prompt: %w", err)
		}

		answer, err = a.client.Generate(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("generating answer: %w", err)
		}
	}

	return answer, nil
}

// packWindows joins texts into windows of at most budget characters,
// preserving retrieval order. A text larger than the budget gets a window
// of its own. At least one window is always returned so the model is
// queried even with no retrieved context.
func packWindows(texts []string, budget int) []string {
	var windows []string
	var current strings.Builder

	for _, text := range texts {
		if current.Len() > 0 && current.Len()+len(windowSeparator)+len(text) > budget {
			windows = append(windows, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(windowSeparator)
		}
		current.WriteString(text)
	}

	return append(windows, current.String())
}
