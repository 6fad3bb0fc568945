package termbase

import "github.com/termbase/mcp-server/internal/domain"

// DefaultTerms seed a fresh term base so listing and querying have material
// to work with before any extraction has run. A reset restores this set.
var DefaultTerms = domain.TermSet{
	"New York City": "The most populous city in the United States, located at the southern tip of New York State.",
	"NYC":           "An abbreviation for New York City.",
	"Borough":       "One of the five administrative divisions of New York City.",
	"Manhattan":     "The most densely populated borough of New York City and its historical core.",
	"Brooklyn":      "The most populous borough of New York City, located on Long Island.",
	"Queens":        "The largest borough of New York City by area.",
	"The Bronx":     "The only borough of New York City located primarily on the mainland.",
	"Staten Island": "The least populated borough of New York City, connected to Manhattan by ferry.",
}

// DefaultTermSet returns an independent copy of the seed terms.
func DefaultTermSet() domain.TermSet {
	return DefaultTerms.Clone()
}
