package domain

import "sort"

// TermEntry represents a single extracted term/definition pair.
// It is the unit of insertion into the retrieval index and the unit of
// display in term listings.
type TermEntry struct {
	// Term is the unique key for the pair. Always trimmed and non-empty.
	Term string `json:"term"`

	// Definition is the free-text definition. Trimmed, may be empty.
	Definition string `json:"definition"`
}

// IndexedText renders the canonical content stored in the retrieval index
// for this pair.
// Format: "Term: <term>\nDefinition: <definition>"
func (e TermEntry) IndexedText() string {
	return "Term: " + e.Term + "\nDefinition: " + e.Definition
}

// TermSet is a mapping of term to definition. Terms are unique; associating
// an existing term replaces its definition.
type TermSet map[string]string

// MergeTerms returns the union of existing and incoming as a new set.
// On key collision the incoming definition wins. Neither argument is
// modified.
func MergeTerms(existing, incoming TermSet) TermSet {
	merged := make(TermSet, len(existing)+len(incoming))
	for term, def := range existing {
		merged[term] = def
	}
	for term, def := range incoming {
		merged[term] = def
	}
	return merged
}

// Clone returns an independent copy of s.
func (s TermSet) Clone() TermSet {
	clone := make(TermSet, len(s))
	for term, def := range s {
		clone[term] = def
	}
	return clone
}

// Terms returns the set's keys sorted lexicographically.
func (s TermSet) Terms() []string {
	terms := make([]string, 0, len(s))
	for term := range s {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Entries returns the pairs sorted by term for deterministic iteration.
func (s TermSet) Entries() []TermEntry {
	entries := make([]TermEntry, 0, len(s))
	for _, term := range s.Terms() {
		entries = append(entries, TermEntry{Term: term, Definition: s[term]})
	}
	return entries
}

// Document represents a text-bearing input to term extraction: a plain text
// snippet, a loaded file, or the OCR output of an image.
type Document struct {
	// ID uniquely identifies the document within an extraction batch.
	ID string `json:"id"`

	// Name is the human-readable source name, usually a file name.
	// Example: "nyc_wikipedia.txt"
	Name string `json:"name"`

	// Content is the full extracted text.
	Content string `json:"content"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	TermFieldTerm       = "term"
	TermFieldDefinition = "definition"
)
