package search

// BuildSearchBody assembles the ranked search request. The should-clauses
// form a strict priority ladder via boosts; at least one must match. An
// empty query degrades to match_all so the home page can page through
// everything.
func BuildSearchBody(query string, from, size int) map[string]any {
	var q map[string]any
	if query == "" {
		q = map[string]any{"match_all": map[string]any{}}
	} else {
		q = map[string]any{
			"bool": map[string]any{
				"should": []map[string]any{
					// Exact phrase in title (highest boost)
					{"match_phrase": map[string]any{
						"title": map[string]any{"query": query, "boost": 5},
					}},
					// Stemmed title match
					{"match": map[string]any{
						"title.stemmed": map[string]any{"query": query, "boost": 4},
					}},
					// Exact phrase in the aggregate text field
					{"match_phrase": map[string]any{
						"text": map[string]any{"query": query, "boost": 3},
					}},
					// Stemmed text match
					{"match": map[string]any{
						"text.stemmed": map[string]any{"query": query, "boost": 2.5},
					}},
					// Prefix match for autocomplete
					{"match_phrase_prefix": map[string]any{
						"text": map[string]any{"query": query, "boost": 2, "max_expansions": 10},
					}},
					// Fuzzy match for typo tolerance
					{"match": map[string]any{
						"text": map[string]any{"query": query, "fuzziness": "AUTO", "boost": 1.5},
					}},
					// Description match (lowest priority)
					{"match": map[string]any{
						"description": map[string]any{"query": query, "boost": 1},
					}},
				},
				"minimum_should_match": 1,
			},
		}
	}

	return map[string]any{
		"from":  from,
		"size":  size,
		"query": q,
		"sort": []map[string]any{
			{"_score": "desc"},
			{"createdAt": "desc"},
		},
		"highlight": map[string]any{
			"fields": map[string]any{
				"text":        map[string]any{"number_of_fragments": 2, "fragment_size": 150},
				"title":       map[string]any{"number_of_fragments": 1, "fragment_size": 150},
				"description": map[string]any{"number_of_fragments": 2, "fragment_size": 150},
			},
		},
	}
}

// BuildSuggestBody assembles the autocomplete request: prefix matches on
// title and text only, no hits returned, suggestions read from two terms
// aggregations that the caller merges and deduplicates.
func BuildSuggestBody(prefix string, limit int) map[string]any {
	return map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"should": []map[string]any{
					{"match_phrase_prefix": map[string]any{
						"title": map[string]any{"query": prefix, "boost": 4, "slop": 2},
					}},
					{"match_phrase_prefix": map[string]any{
						"text": map[string]any{"query": prefix, "boost": 2},
					}},
				},
			},
		},
		"aggs": map[string]any{
			"title_suggestions": map[string]any{
				"terms": map[string]any{
					"field": "title.keyword",
					"size":  limit,
					"order": map[string]any{"_count": "desc"},
				},
			},
			"text_suggestions": map[string]any{
				"terms": map[string]any{
					"field": "text.keyword",
					"size":  limit,
					"order": map[string]any{"_count": "desc"},
				},
			},
		},
	}
}
