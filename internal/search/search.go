package search

import (
	"context"
	"time"
)

// Document is the derived search-side projection of a VideoAsset. It is not
// authoritative: it must converge to match the record store after each
// mutation, within the propagation lag of the CDC stream.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Text        string    `json:"text"` // title + description + author aggregate
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Hit is one search result with its relevance score and highlighted snippets.
type Hit struct {
	Document
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// Result is a page of ranked hits.
type Result struct {
	Total     int   `json:"total"`
	Documents []Hit `json:"documents"`
}

// BulkReport accounts for a bulk load that is allowed to partially fail:
// recovery resyncs report indexed-vs-failed counts instead of aborting.
type BulkReport struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// VideoIndex is the full-text/autocomplete index the watch path queries.
type VideoIndex interface {
	// EnsureIndex creates the index with its analyzers and mappings if it
	// does not exist yet. Idempotent.
	EnsureIndex(ctx context.Context) error

	// IndexVideo writes the document with overwrite semantics: re-indexing
	// identical content is an observable no-op.
	IndexVideo(ctx context.Context, doc Document) error

	// DeleteVideo removes the document for the given record ID.
	DeleteVideo(ctx context.Context, id string) error

	// Search runs the ranked query ladder and returns one page of hits.
	Search(ctx context.Context, query string, page, limit int) (*Result, error)

	// Suggest returns deduplicated autocomplete suggestions for a prefix.
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)

	// BulkIndex loads many documents, tolerating per-item failures.
	BulkIndex(ctx context.Context, docs []Document) (BulkReport, error)
}

// AggregateText builds the combined text field used for broad matching.
func AggregateText(title, description, author string) string {
	return title + " " + description + " " + author
}
