package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProcessingState is informational only; the pipeline keeps no durable
// "processing" record beyond the ingest event itself.
type ProcessingState string

const (
	ProcessingPending ProcessingState = "pending"
	ProcessingReady   ProcessingState = "ready"
)

// VideoAsset is the primary metadata record for one uploaded video.
// It is created only after the finalized object exists in the object store
// AND the ingest event has been durably published, never before.
// URL is immutable after creation.
type VideoAsset struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	Author          string             `bson:"author,omitempty" json:"author,omitempty"`
	URL             string             `bson:"url" json:"url"` // Location of the finalized source object in S3
	ProcessingState ProcessingState    `bson:"processingState,omitempty" json:"processingState,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
