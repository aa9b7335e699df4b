package propagator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"streamgo/internal/search"
)

// cdcEnvelope is the change-data event consumed from the CDC topic:
// {payload: {op: "c"|"u"|"d", before?, after?}}.
type cdcEnvelope struct {
	Payload *cdcPayload `json:"payload"`
}

type cdcPayload struct {
	Op     string     `json:"op"`
	Before *cdcRecord `json:"before"`
	After  *cdcRecord `json:"after"`
}

type cdcRecord struct {
	ID          flexID    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
}

// flexID accepts both string and numeric record IDs; connectors differ.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexID(s)
	return nil
}

// Propagator mirrors record-store mutations into the search index: creates
// and updates upsert the derived document, deletes remove it. It is the only
// writer that keeps the two independently-queried stores convergent.
type Propagator struct {
	index search.VideoIndex
}

// NewPropagator creates a propagator over the given index.
func NewPropagator(index search.VideoIndex) *Propagator {
	return &Propagator{index: index}
}

// HandleMessage processes one change-data event. Malformed events are logged
// and skipped; indexing overwrites, so redelivery of the same event is a
// no-op observable effect.
func (p *Propagator) HandleMessage(ctx context.Context, key, value []byte) error {
	var event cdcEnvelope
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("ERROR: Skipping unparseable change event: %v", err)
		return nil
	}
	if event.Payload == nil {
		return nil
	}

	switch event.Payload.Op {
	case "c", "u":
		record := event.Payload.After
		if record == nil || record.ID == "" {
			return nil
		}
		doc := search.Document{
			ID:          string(record.ID),
			Title:       record.Title,
			Text:        search.AggregateText(record.Title, record.Description, record.Author),
			Description: record.Description,
			Author:      record.Author,
			URL:         record.URL,
			CreatedAt:   record.CreatedAt,
		}
		if err := p.index.IndexVideo(ctx, doc); err != nil {
			return fmt.Errorf("index video %s: %w", record.ID, err)
		}
		log.Printf("INFO: Indexed video %s from change event", record.ID)
	case "d":
		record := event.Payload.Before
		if record == nil || record.ID == "" {
			return nil
		}
		if err := p.index.DeleteVideo(ctx, string(record.ID)); err != nil {
			return fmt.Errorf("delete video %s: %w", record.ID, err)
		}
		log.Printf("INFO: Deleted video %s from change event", record.ID)
	default:
		log.Printf("INFO: Ignoring change event with op %q", event.Payload.Op)
	}
	return nil
}
