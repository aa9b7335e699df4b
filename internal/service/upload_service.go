package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"streamgo/internal/domain"
	"streamgo/internal/queue"
	"streamgo/internal/repository"
	"streamgo/internal/storage"
)

// --- Error Definitions ---
var (
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage operation failed")
	ErrQueue      = errors.New("queue operation failed")
)

const sourceContentType = "video/mp4"

// UploadService owns the multipart-upload state machine: it opens sessions,
// accepts parts, finalizes the object, dispatches the ingest event and only
// then persists the metadata record.
type UploadService interface {
	InitializeUpload(ctx context.Context, filename string) (*domain.UploadSession, error)
	UploadChunk(ctx context.Context, key, uploadID string, chunkIndex int, chunk io.Reader) (eTag string, err error)
	CompleteUpload(ctx context.Context, uploadID, key, title, description, author string) (location string, err error)
	// SaveVideoMetadata persists a record directly, bypassing the pipeline.
	// Used by operators to backfill metadata for already-processed objects.
	SaveVideoMetadata(ctx context.Context, title, description, author, url string) (*domain.VideoAsset, error)
}

// uploadService implements the UploadService interface.
type uploadService struct {
	storage        storage.ObjectStorage
	queue          queue.MessageQueue
	videoRepo      repository.VideoRepository
	transcodeTopic string
}

// NewUploadService creates a new instance of uploadService.
func NewUploadService(
	objectStorage storage.ObjectStorage,
	messageQueue queue.MessageQueue,
	videoRepo repository.VideoRepository,
	transcodeTopic string,
) UploadService {
	return &uploadService{
		storage:        objectStorage,
		queue:          messageQueue,
		videoRepo:      videoRepo,
		transcodeTopic: transcodeTopic,
	}
}

// InitializeUpload derives a collision-resistant object key from the
// filename and opens a multipart session for it.
func (s *uploadService) InitializeUpload(ctx context.Context, filename string) (*domain.UploadSession, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrValidation)
	}

	// Strip any extension the client sent; the key always carries .mp4 and
	// a uniqueness token so duplicate filenames cannot collide.
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	key := fmt.Sprintf("%s-%s.mp4", base, uuid.NewString())

	uploadID, err := s.storage.InitiateMultipartUpload(ctx, key, sourceContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	log.Printf("INFO: Initialized upload session %s for key '%s'", uploadID, key)
	return &domain.UploadSession{
		UploadID:  uploadID,
		ObjectKey: key,
		Status:    domain.UploadInitialized,
	}, nil
}

// UploadChunk stores one chunk as part chunkIndex+1. Chunks are commutative
// and may arrive concurrently in any order; each failure is independently
// retryable by the caller.
func (s *uploadService) UploadChunk(ctx context.Context, key, uploadID string, chunkIndex int, chunk io.Reader) (string, error) {
	if key == "" || uploadID == "" {
		return "", fmt.Errorf("%w: missing key or uploadId", ErrValidation)
	}
	if chunkIndex < 0 {
		return "", fmt.Errorf("%w: chunkIndex must not be negative", ErrValidation)
	}

	eTag, err := s.storage.UploadPart(ctx, key, uploadID, int32(chunkIndex)+1, chunk)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return eTag, nil
}

// CompleteUpload finalizes the object from the parts the store actually
// recorded, publishes the ingest event, and persists the metadata record,
// strictly in that order. If the publish fails after finalize, the finalized
// object is deleted again: an orphaned, unprocessed object must never remain
// reachable, and metadata must never reference a video without a dispatched
// job.
func (s *uploadService) CompleteUpload(ctx context.Context, uploadID, key, title, description, author string) (string, error) {
	if uploadID == "" || key == "" {
		return "", fmt.Errorf("%w: missing required parameters: uploadId or key", ErrValidation)
	}

	parts, err := s.storage.ListParts(ctx, key, uploadID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: %v", ErrStorage, storage.ErrNoParts)
	}

	// The store's recorded part list is the source of truth, not the
	// client's claimed chunk count. Order strictly by part number so any
	// arrival permutation finalizes to the same bytes.
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })

	location, err := s.storage.CompleteMultipartUpload(ctx, key, uploadID, parts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	log.Printf("INFO: Upload completed for key '%s' at %s", key, location)

	job := domain.TranscodeJob{
		Title:     title,
		URL:       location,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", err
	}

	if err := s.queue.Publish(ctx, s.transcodeTopic, []byte("video"), payload); err != nil {
		// Compensate: the finalized object has no dispatched job, so it
		// must not stay reachable.
		log.Printf("ERROR: Ingest event publish failed for key '%s', rolling back finalized object: %v", key, err)
		if delErr := s.storage.DeleteObject(ctx, key); delErr != nil {
			log.Printf("ERROR: Rollback delete of '%s' failed: %v", key, delErr)
		}
		return "", fmt.Errorf("%w: %v", ErrQueue, err)
	}

	video := &domain.VideoAsset{
		Title:       title,
		Description: description,
		Author:      author,
		URL:         location,
	}
	if _, err := s.videoRepo.Create(ctx, video); err != nil {
		// The event is already durably published; the worker will still
		// process the object. Surface the error so the caller can retry
		// the metadata write.
		log.Printf("ERROR: Failed to persist video metadata for key '%s': %v", key, err)
		return "", err
	}

	return location, nil
}

// SaveVideoMetadata persists a metadata record without touching the pipeline.
func (s *uploadService) SaveVideoMetadata(ctx context.Context, title, description, author, url string) (*domain.VideoAsset, error) {
	if title == "" || url == "" {
		return nil, fmt.Errorf("%w: title and url are required", ErrValidation)
	}
	video := &domain.VideoAsset{
		Title:       title,
		Description: description,
		Author:      author,
		URL:         url,
	}
	id, err := s.videoRepo.Create(ctx, video)
	if err != nil {
		return nil, err
	}
	video.ID = id
	return video, nil
}
