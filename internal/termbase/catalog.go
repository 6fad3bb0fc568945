package termbase

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/termbase/mcp-server/internal/domain"
)

// termBoost ranks matches on the term name above matches inside definitions.
const termBoost = 5.0

// maxCatalogBatch is the maximum number of entries per indexing batch.
const maxCatalogBatch = 100

// Catalog is an in-memory full-text index over the aggregate term set. It
// serves keyword lookups without a model round trip and is rebuilt from the
// snapshot on startup.
type Catalog struct {
	mu    sync.RWMutex
	index bleve.Index
}

// CatalogHit is a single catalog search result.
type CatalogHit struct {
	Term       string
	Definition string
	Score      float64
}

// createCatalogMapping creates the Bleve index mapping for term entries.
func createCatalogMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Term field - analyzed so lookups match regardless of casing
	termField := bleve.NewTextFieldMapping()
	termField.Analyzer = standard.Name
	termField.Store = true
	docMapping.AddFieldMappingsAt(domain.TermFieldTerm, termField)

	// Definition field - analyzed for full-text search
	definitionField := bleve.NewTextFieldMapping()
	definitionField.Analyzer = standard.Name
	definitionField.Store = true
	docMapping.AddFieldMappingsAt(domain.TermFieldDefinition, definitionField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// NewCatalog creates an empty catalog.
func NewCatalog() (*Catalog, error) {
	index, err := bleve.NewMemOnly(createCatalogMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog index: %w", err)
	}
	return &Catalog{index: index}, nil
}

// Put indexes a single entry. Indexing an existing term replaces it.
func (c *Catalog) Put(entry domain.TermEntry) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.index.Index(entry.Term, entry); err != nil {
		return fmt.Errorf("failed to index term %q: %w", entry.Term, err)
	}
	return nil
}

// PutAll indexes every entry of the set in batches.
func (c *Catalog) PutAll(terms domain.TermSet) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return putAll(c.index, terms)
}

func putAll(index bleve.Index, terms domain.TermSet) error {
	batch := index.NewBatch()
	batchSize := 0

	for _, entry := range terms.Entries() {
		if err := batch.Index(entry.Term, entry); err != nil {
			return fmt.Errorf("failed to index term %q: %w", entry.Term, err)
		}
		batchSize++

		if batchSize >= maxCatalogBatch {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("batch index failed: %w", err)
			}
			batch = index.NewBatch()
			batchSize = 0
		}
	}

	if batchSize > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("final batch index failed: %w", err)
		}
	}
	return nil
}

// Rebuild replaces the catalog contents with the given set.
func (c *Catalog) Rebuild(terms domain.TermSet) error {
	fresh, err := bleve.NewMemOnly(createCatalogMapping())
	if err != nil {
		return fmt.Errorf("failed to create catalog index: %w", err)
	}
	if err := putAll(fresh, terms); err != nil {
		_ = fresh.Close()
		return err
	}

	c.mu.Lock()
	old := c.index
	c.index = fresh
	c.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			return fmt.Errorf("failed to close previous catalog index: %w", err)
		}
	}
	return nil
}

// Search returns up to limit entries matching the query, best match first.
// Matches on the term name rank above matches inside definitions.
func (c *Catalog) Search(queryStr string, limit int) ([]CatalogHit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	searchReq := bleve.NewSearchRequest(buildCatalogQuery(queryStr))
	searchReq.Size = limit
	searchReq.Fields = []string{domain.TermFieldTerm, domain.TermFieldDefinition}

	results, err := c.index.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}

	hits := make([]CatalogHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		catalogHit := CatalogHit{Score: hit.Score}
		if val, ok := hit.Fields[domain.TermFieldTerm].(string); ok {
			catalogHit.Term = val
		}
		if val, ok := hit.Fields[domain.TermFieldDefinition].(string); ok {
			catalogHit.Definition = val
		}
		hits = append(hits, catalogHit)
	}
	return hits, nil
}

// buildCatalogQuery constructs a Bleve query matching the term name (boosted)
// or the definition text.
func buildCatalogQuery(queryStr string) query.Query {
	termQuery := bleve.NewMatchQuery(queryStr)
	termQuery.SetField(domain.TermFieldTerm)
	termQuery.SetBoost(termBoost)

	definitionQuery := bleve.NewMatchQuery(queryStr)
	definitionQuery.SetField(domain.TermFieldDefinition)

	return bleve.NewDisjunctionQuery(termQuery, definitionQuery)
}

// Count returns the number of indexed entries.
func (c *Catalog) Count() (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.DocCount()
}

// Close releases the catalog index.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == nil {
		return nil
	}
	err := c.index.Close()
	c.index = nil
	return err
}
