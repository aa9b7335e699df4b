package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"streamgo/internal/domain"
	"streamgo/internal/repository"
	"streamgo/internal/search"
	"streamgo/internal/storage"
)

// Playback URL cache lifetimes. The master playlist is re-signed often so
// fresh segment lists are observed promptly; segments are immutable once
// written and cache for a year. Both share the same expiry window.
const (
	playbackURLExpiry    = 1 * time.Hour
	masterCacheControl   = "max-age=5"
	segmentCacheControl  = "max-age=31536000"
	hlsManifestMediaType = "application/vnd.apple.mpegurl"
)

// PlaybackURLs is the signed, player-consumable view of a stored object.
type PlaybackURLs struct {
	SignedURL string `json:"signedUrl"`
	Type      string `json:"type"` // "hls" or "mp4"
	BaseURL   string `json:"baseUrl,omitempty"`
}

// VideoSummary is one entry of a listing or search result page.
type VideoSummary struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Author      string              `json:"author,omitempty"`
	URL         string              `json:"url"`
	CreatedAt   time.Time           `json:"createdAt"`
	Highlights  map[string][]string `json:"highlights,omitempty"`
}

// VideoPage is one page of videos with pagination metadata.
type VideoPage struct {
	Videos []VideoSummary `json:"videos"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

// WatchService answers playback, listing, search and suggestion requests,
// and owns the search-index resync operation.
type WatchService interface {
	// Watch turns a stored object reference into signed playback URLs.
	// The gateway is stateless: everything derives from the reference.
	Watch(ctx context.Context, videoURL string) (*PlaybackURLs, error)
	// Home lists videos; with a query it searches the index, without one it
	// pages through the record store newest-first.
	Home(ctx context.Context, query string, page, limit int) (*VideoPage, error)
	// Suggest returns autocomplete suggestions; failures degrade to an
	// empty list rather than an error.
	Suggest(ctx context.Context, query string, limit int) []string
	// Sync bulk-loads the whole record store into the search index,
	// reporting per-item success counts.
	Sync(ctx context.Context) (search.BulkReport, error)
	// IndexVideo persists a record and indexes it synchronously (backfill).
	IndexVideo(ctx context.Context, title, description, author, url string) (*domain.VideoAsset, error)
}

// watchService implements the WatchService interface.
type watchService struct {
	storage   storage.ObjectStorage
	videoRepo repository.VideoRepository
	index     search.VideoIndex
}

// NewWatchService creates a new instance of watchService.
func NewWatchService(objectStorage storage.ObjectStorage, videoRepo repository.VideoRepository, index search.VideoIndex) WatchService {
	return &watchService{
		storage:   objectStorage,
		videoRepo: videoRepo,
		index:     index,
	}
}

// Watch signs the stored reference for playback. HLS packages get a
// short-cache master playlist URL plus a long-cache segment base URL that
// share one expiry; progressive files get one inline mp4 URL.
func (s *watchService) Watch(ctx context.Context, videoURL string) (*PlaybackURLs, error) {
	if videoURL == "" {
		return nil, fmt.Errorf("%w: video URL is required", ErrValidation)
	}

	bucket, key, err := storage.ParseObjectURL(videoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid video URL: %v", ErrValidation, err)
	}

	if !isHLSKey(key) {
		signedURL, err := s.storage.PresignGetObject(ctx, bucket, key, storage.PresignOptions{
			Expires:                    playbackURLExpiry,
			ResponseContentType:        "video/mp4",
			ResponseContentDisposition: "inline",
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		return &PlaybackURLs{SignedURL: signedURL, Type: "mp4"}, nil
	}

	masterURL, err := s.storage.PresignGetObject(ctx, bucket, key, storage.PresignOptions{
		Expires:              playbackURLExpiry,
		ResponseContentType:  hlsManifestMediaType,
		ResponseCacheControl: masterCacheControl,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	// Sign a wildcard key under the package prefix and truncate at the
	// wildcard: the player appends segment names to the resulting base.
	basePath := key[:strings.LastIndex(key, "/")]
	segmentURL, err := s.storage.PresignGetObject(ctx, bucket, basePath+"/*", storage.PresignOptions{
		Expires:              playbackURLExpiry,
		ResponseCacheControl: segmentCacheControl,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return &PlaybackURLs{
		SignedURL: masterURL,
		Type:      "hls",
		BaseURL:   truncateAtWildcard(segmentURL),
	}, nil
}

// Home serves the listing page. An empty query reads the record store
// directly; anything else goes through the ranked search index.
func (s *watchService) Home(ctx context.Context, query string, page, limit int) (*VideoPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 12
	}

	if strings.TrimSpace(query) == "" {
		videos, total, err := s.videoRepo.List(ctx, page, limit)
		if err != nil {
			return nil, err
		}
		summaries := make([]VideoSummary, len(videos))
		for i, v := range videos {
			summaries[i] = VideoSummary{
				ID:          v.ID.Hex(),
				Title:       v.Title,
				Description: v.Description,
				Author:      v.Author,
				URL:         v.URL,
				CreatedAt:   v.CreatedAt,
			}
		}
		return &VideoPage{Videos: summaries, Total: total, Page: page, Limit: limit}, nil
	}

	result, err := s.index.Search(ctx, query, page, limit)
	if err != nil {
		// Search failures degrade to an empty page, not an error page.
		log.Printf("ERROR: Search for %q failed: %v", query, err)
		return &VideoPage{Videos: []VideoSummary{}, Page: page, Limit: limit}, nil
	}

	summaries := make([]VideoSummary, len(result.Documents))
	for i, hit := range result.Documents {
		summaries[i] = VideoSummary{
			ID:          hit.ID,
			Title:       hit.Title,
			Description: hit.Description,
			Author:      hit.Author,
			URL:         hit.URL,
			CreatedAt:   hit.CreatedAt,
			Highlights:  hit.Highlights,
		}
	}
	return &VideoPage{Videos: summaries, Total: int64(result.Total), Page: page, Limit: limit}, nil
}

// Suggest returns autocomplete suggestions, degrading to empty on failure.
func (s *watchService) Suggest(ctx context.Context, query string, limit int) []string {
	suggestions, err := s.index.Suggest(ctx, query, limit)
	if err != nil {
		log.Printf("ERROR: Suggestions for %q failed: %v", query, err)
		return []string{}
	}
	return suggestions
}

// Sync bootstraps the index and bulk-loads every record into it.
func (s *watchService) Sync(ctx context.Context) (search.BulkReport, error) {
	if err := s.index.EnsureIndex(ctx); err != nil {
		return search.BulkReport{}, err
	}

	videos, err := s.videoRepo.All(ctx)
	if err != nil {
		return search.BulkReport{}, err
	}
	log.Printf("INFO: Syncing %d videos to the search index", len(videos))

	docs := make([]search.Document, len(videos))
	for i, v := range videos {
		docs[i] = DocumentFromVideo(&v)
	}
	return s.index.BulkIndex(ctx, docs)
}

// IndexVideo persists a record and indexes it in one call.
func (s *watchService) IndexVideo(ctx context.Context, title, description, author, url string) (*domain.VideoAsset, error) {
	if title == "" || url == "" {
		return nil, fmt.Errorf("%w: video title and URL are required", ErrValidation)
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

	if err := s.index.IndexVideo(ctx, DocumentFromVideo(video)); err != nil {
		return nil, err
	}
	return video, nil
}

// DocumentFromVideo maps a metadata record to its search projection.
func DocumentFromVideo(v *domain.VideoAsset) search.Document {
	id := v.ID.Hex()
	if v.ID == primitive.NilObjectID {
		id = ""
	}
	return search.Document{
		ID:          id,
		Title:       v.Title,
		Text:        search.AggregateText(v.Title, v.Description, v.Author),
		Description: v.Description,
		Author:      v.Author,
		URL:         v.URL,
		CreatedAt:   v.CreatedAt,
	}
}

// isHLSKey reports whether the object key addresses a segmented package.
func isHLSKey(key string) bool {
	return strings.HasPrefix(key, "hls/") || strings.Contains(key, "/hls/")
}

// truncateAtWildcard cuts a signed wildcard URL back to its segment base.
// The SDK may leave the '*' literal or percent-encode it.
func truncateAtWildcard(signed string) string {
	if i := strings.Index(signed, "%2A"); i >= 0 {
		return signed[:i]
	}
	if i := strings.Index(signed, "*"); i >= 0 {
		return signed[:i]
	}
	return signed
}
