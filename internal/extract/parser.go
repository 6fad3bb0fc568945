// Package extract turns free-form document text into term/definition pairs
// by running an LLM summarization pass and parsing its line-oriented output.
package extract

import (
	"strings"

	"github.com/termbase/mcp-server/internal/domain"
)

// Line markers the model is instructed to emit.
const (
	termMarker       = "Term:"
	definitionMarker = "Definition:"
)

// ParseTerms parses a model response into a term set. Only lines containing
// both markers contribute; everything else is ignored. The term is the text
// between the last "Term:" marker and the first "Definition:" marker, the
// definition is the text after the last "Definition:" marker, both trimmed.
// Later lines win on duplicate terms. Lines whose term trims to the empty
// string are dropped.
func ParseTerms(response string) domain.TermSet {
	terms := make(domain.TermSet)

	for _, line := range strings.Split(response, "\n") {
		if !strings.Contains(line, termMarker) || !strings.Contains(line, definitionMarker) {
			continue
		}

		prefix, _, _ := strings.Cut(line, definitionMarker)
		if i := strings.LastIndex(prefix, termMarker); i >= 0 {
			prefix = prefix[i+len(termMarker):]
		}
		term := strings.TrimSpace(prefix)
		if term == "" {
			continue
		}

		rest := line[strings.LastIndex(line, definitionMarker)+len(definitionMarker):]
		terms[term] = strings.TrimSpace(rest)
	}

	return terms
}
