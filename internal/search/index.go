// Package search provides keyword search over fetched issues.
package search

import (
	"fmt"
	"log"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
)

// Hit is one search result.
type Hit struct {
	ID         api.ID  `json:"id"`
	Number     int     `json:"number"`
	Title      string  `json:"title"`
	Repository string  `json:"repository"`
	Score      float64 `json:"score"`
}

// Filter narrows results to exact field values. Empty fields match all.
type Filter struct {
	Repository string
	State      string
	Label      string
}

// IssueIndex is an in-memory BM25 index over issues.
type IssueIndex struct {
	index bleve.Index
}

// NewIssueIndex creates an empty in-memory index.
func NewIssueIndex() (*IssueIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create issue index: %w", err)
	}
	return &IssueIndex{index: index}, nil
}

// Close releases the index.
func (x *IssueIndex) Close() error {
	return x.index.Close()
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	issueMapping := bleve.NewDocumentMapping()

	for _, name := range []string{"repository", "state", "labels"} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = true
		f.Index = true
		issueMapping.AddFieldMappingsAt(name, f)
	}

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.Index = true
	issueMapping.AddFieldMappingsAt("title", title)

	body := bleve.NewTextFieldMapping()
	body.Analyzer = standard.Name
	body.Store = false
	body.Index = true
	issueMapping.AddFieldMappingsAt("body", body)

	number := bleve.NewNumericFieldMapping()
	number.Store = true
	number.Index = false
	issueMapping.AddFieldMappingsAt("number", number)

	indexMapping.DefaultMapping = issueMapping
	return indexMapping
}

// Index adds or replaces issues in one batch.
func (x *IssueIndex) Index(issues []api.Issue) error {
	batch := x.index.NewBatch()
	for _, is := range issues {
		if is.ID == "" {
			continue
		}
		doc := map[string]interface{}{
			"title":      is.Title,
			"body":       is.Body,
			"repository": is.Repository,
			"state":      is.State,
			"labels":     is.Labels,
			"number":     float64(is.Number),
		}
		if err := batch.Index(string(is.ID), doc); err != nil {
			return fmt.Errorf("failed to index issue %s: %w", is.ID, err)
		}
	}
	n := batch.Size()
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index issues: %w", err)
	}
	log.Printf("📚 Indexed %d issues", n)
	return nil
}

// Count returns the number of indexed issues.
func (x *IssueIndex) Count() (uint64, error) {
	return x.index.DocCount()
}

// Search returns the top k issues matching text, with title matches
// weighted above body matches.
func (x *IssueIndex) Search(text string, f Filter, k int) ([]Hit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if k <= 0 {
		k = 10
	}

	titleQ := bleve.NewMatchQuery(text)
	titleQ.SetField("title")
	titleQ.SetBoost(2)
	bodyQ := bleve.NewMatchQuery(text)
	bodyQ.SetField("body")

	var q query.Query = bleve.NewDisjunctionQuery(titleQ, bodyQ)
	if filters := termFilters(f); len(filters) > 0 {
		q = bleve.NewConjunctionQuery(append([]query.Query{q}, filters...)...)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = k
	req.Fields = []string{"title", "repository", "number"}

	res, err := x.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("issue search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: api.ID(h.ID), Score: h.Score}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["repository"].(string); ok {
			hit.Repository = v
		}
		if v, ok := h.Fields["number"].(float64); ok {
			hit.Number = int(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func termFilters(f Filter) []query.Query {
	var out []query.Query
	add := func(field, value string) {
		if value == "" {
			return
		}
		tq := bleve.NewTermQuery(value)
		tq.SetField(field)
		out = append(out, tq)
	}
	add("repository", f.Repository)
	add("state", f.State)
	add("labels", f.Label)
	return out
}
