package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query           string
	ParticipantType string // empty = all
	SurveyID        string // empty = all
	Limit           int
	Offset          int
}

// DefaultLimit is used when SearchParams.Limit is unset.
const DefaultLimit = 20

// SearchResult holds the hits for one query.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Facets []FacetCount `json:"facets,omitempty"` // participant type counts
}

// SearchHit is one matching response.
type SearchHit struct {
	ResponseID      string   `json:"response_id"`
	SurveyID        string   `json:"survey_id"`
	ParticipantType string   `json:"participant_type"`
	Score           float64  `json:"score"`
	Fragments       []string `json:"fragments,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a query against response text.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	req.SortBy([]string{"-_score", "-completed_at"})
	req.AddFacet("participant_type", bleve.NewFacetRequest("participant_type", 2))
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("text")
	req.Fields = []string{"survey_id", "participant_type"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := SearchHit{ResponseID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["survey_id"].(string); ok {
			h.SurveyID = v
		}
		if v, ok := hit.Fields["participant_type"].(string); ok {
			h.ParticipantType = v
		}
		h.Fragments = hit.Fragments["text"]
		result.Hits = append(result.Hits, h)
	}

	if facet, ok := res.Facets["participant_type"]; ok && facet.Terms != nil {
		for _, term := range facet.Terms.Terms() {
			result.Facets = append(result.Facets, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	return result, nil
}

func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		match := bleve.NewMatchQuery(q)
		match.SetField("text")

		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzy.SetField("text")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(0.5)

		queries = append(queries, bleve.NewDisjunctionQuery(match, fuzzy))
	}

	if params.ParticipantType != "" {
		tq := bleve.NewTermQuery(params.ParticipantType)
		tq.SetField("participant_type")
		queries = append(queries, tq)
	}
	if params.SurveyID != "" {
		tq := bleve.NewTermQuery(params.SurveyID)
		tq.SetField("survey_id")
		queries = append(queries, tq)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	return bleve.NewConjunctionQuery(queries...)
}
