package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"streamgo/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// indexMapping defines the autocomplete analyzer (edge n-grams 2..10) plus
// keyword and english-stemmed subfields on title/text, so one index serves
// prefix, phrase, stemmed and fuzzy queries.
const indexMapping = `{
  "settings": {
    "analysis": {
      "analyzer": {
        "autocomplete_analyzer": {
          "tokenizer": "autocomplete",
          "filter": ["lowercase"]
        },
        "autocomplete_search_analyzer": {
          "tokenizer": "lowercase"
        }
      },
      "tokenizer": {
        "autocomplete": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 10,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id": {"type": "keyword"},
      "title": {
        "type": "text",
        "analyzer": "autocomplete_analyzer",
        "search_analyzer": "autocomplete_search_analyzer",
        "fields": {
          "keyword": {"type": "keyword", "ignore_above": 256},
          "stemmed": {"type": "text", "analyzer": "english"}
        }
      },
      "text": {
        "type": "text",
        "analyzer": "autocomplete_analyzer",
        "search_analyzer": "autocomplete_search_analyzer",
        "fields": {
          "keyword": {"type": "keyword", "ignore_above": 256},
          "stemmed": {"type": "text", "analyzer": "english"}
        }
      },
      "description": {"type": "text"},
      "url": {"type": "keyword"},
      "author": {"type": "keyword"},
      "createdAt": {"type": "date"}
    }
  }
}`

// esIndex implements VideoIndex against Elasticsearch 8.
type esIndex struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticsearchIndex creates the process-wide Elasticsearch client.
func NewElasticsearchIndex(cfg config.ElasticsearchConfig) (VideoIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  cfg.Addresses,
		APIKey:     cfg.APIKey,
		MaxRetries: 5,
	})
	if err != nil {
		log.Printf("ERROR: Failed to create Elasticsearch client: %v", err)
		return nil, err
	}
	log.Printf("INFO: Elasticsearch client initialized for index '%s'", cfg.Index)
	return &esIndex{client: client, index: cfg.Index}, nil
}

// EnsureIndex creates the index if it does not exist. Safe to call on every
// process start; a concurrent create racing us is tolerated.
func (e *esIndex) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		log.Printf("INFO: Index '%s' already exists", e.index)
		return nil
	}

	createRes, err := e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return err
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		body, _ := io.ReadAll(createRes.Body)
		// Another process may have created it between Exists and Create.
		if strings.Contains(string(body), "resource_already_exists_exception") {
			log.Printf("INFO: Index '%s' already exists", e.index)
			return nil
		}
		return fmt.Errorf("create index '%s': %s", e.index, string(body))
	}
	log.Printf("INFO: Created index '%s'", e.index)
	return nil
}

// IndexVideo writes one document keyed by record ID, overwriting any
// previous version, with an immediate refresh so reads see it.
func (e *esIndex) IndexVideo(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return errors.New("document ID is required")
	}
	if doc.Text == "" {
		doc.Text = AggregateText(doc.Title, doc.Description, doc.Author)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := e.client.Index(
		e.index,
		bytes.NewReader(payload),
		e.client.Index.WithContext(ctx),
		e.client.Index.WithDocumentID(doc.ID),
		e.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index document '%s': %s", doc.ID, string(body))
	}
	return nil
}

// DeleteVideo removes the document; a missing document is not an error.
func (e *esIndex) DeleteVideo(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		e.index,
		id,
		e.client.Delete.WithContext(ctx),
		e.client.Delete.WithRefresh("true"),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("delete document '%s': %s", id, string(body))
	}
	return nil
}

// esSearchResponse covers the subset of the search API response we read.
type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID        string              `json:"_id"`
			Score     float64             `json:"_score"`
			Source    Document            `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Buckets []struct {
			Key string `json:"key"`
		} `json:"buckets"`
	} `json:"aggregations"`
}

// Search runs the ranked should-ladder (phrase title > stemmed title >
// phrase text > stemmed text > prefix > fuzzy > description), secondary
// sorted by recency, with highlighted snippets.
func (e *esIndex) Search(ctx context.Context, query string, page, limit int) (*Result, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 12
	}
	body := BuildSearchBody(query, (page-1)*limit, limit)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search failed: %s", string(raw))
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	result := &Result{Total: parsed.Hits.Total.Value}
	for _, h := range parsed.Hits.Hits {
		doc := h.Source
		doc.ID = h.ID
		result.Documents = append(result.Documents, Hit{
			Document:   doc,
			Score:      h.Score,
			Highlights: h.Highlight,
		})
	}
	return result, nil
}

// Suggest merges deduplicated top-N term buckets from the title and text
// aggregations, restricted to prefix matches.
func (e *esIndex) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if strings.TrimSpace(prefix) == "" {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = 5
	}
	body := BuildSuggestBody(prefix, limit)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("suggest failed: %s", string(raw))
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var suggestions []string
	for _, agg := range []string{"title_suggestions", "text_suggestions"} {
		for _, bucket := range parsed.Aggregations[agg].Buckets {
			if !seen[bucket.Key] {
				seen[bucket.Key] = true
				suggestions = append(suggestions, bucket.Key)
			}
		}
	}
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	return suggestions, nil
}

// esBulkResponse covers the subset of the bulk API response we read.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
	} `json:"items"`
}

// BulkIndex loads documents in one bulk request with per-item accounting.
// Partial failure is reported, not treated as fatal: the resync path prefers
// an almost-complete index over none at all.
func (e *esIndex) BulkIndex(ctx context.Context, docs []Document) (BulkReport, error) {
	if len(docs) == 0 {
		return BulkReport{}, nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		if doc.Text == "" {
			doc.Text = AggregateText(doc.Title, doc.Description, doc.Author)
		}
		meta, _ := json.Marshal(map[string]any{
			"index": map[string]any{"_index": e.index, "_id": doc.ID},
		})
		payload, err := json.Marshal(doc)
		if err != nil {
			return BulkReport{}, err
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(payload)
		buf.WriteByte('\n')
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return BulkReport{}, err
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return BulkReport{}, fmt.Errorf("bulk index failed: %s", string(raw))
	}

	var parsed esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return BulkReport{}, err
	}

	report := BulkReport{}
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Status >= 200 && op.Status < 300 {
				report.Indexed++
			} else {
				report.Failed++
			}
		}
	}
	if parsed.Errors {
		log.Printf("ERROR: Bulk index completed with failures: %d indexed, %d failed", report.Indexed, report.Failed)
	}
	return report, nil
}

var _ VideoIndex = (*esIndex)(nil)
