package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"streamgo/internal/domain"
	"streamgo/internal/search"
	"streamgo/internal/service"
)

// stubWatchService scripts the watch service for handler tests.
type stubWatchService struct {
	urls        *service.PlaybackURLs
	watchErr    error
	page        *service.VideoPage
	homeErr     error
	suggestions []string
	report      search.BulkReport
	syncErr     error
	indexed     *domain.VideoAsset
	indexErr    error

	gotQuery string
	gotPage  int
	gotLimit int
}

func (s *stubWatchService) Watch(ctx context.Context, videoURL string) (*service.PlaybackURLs, error) {
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	return s.urls, nil
}

func (s *stubWatchService) Home(ctx context.Context, query string, page, limit int) (*service.VideoPage, error) {
	s.gotQuery, s.gotPage, s.gotLimit = query, page, limit
	if s.homeErr != nil {
		return nil, s.homeErr
	}
	return s.page, nil
}

func (s *stubWatchService) Suggest(ctx context.Context, query string, limit int) []string {
	s.gotQuery, s.gotLimit = query, limit
	return s.suggestions
}

func (s *stubWatchService) Sync(ctx context.Context) (search.BulkReport, error) {
	if s.syncErr != nil {
		return search.BulkReport{}, s.syncErr
	}
	return s.report, nil
}

func (s *stubWatchService) IndexVideo(ctx context.Context, title, description, author, url string) (*domain.VideoAsset, error) {
	if s.indexErr != nil {
		return nil, s.indexErr
	}
	return s.indexed, nil
}

func newWatchRouter(stub *stubWatchService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupWatchRoutes(router, stub)
	return router
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWatchEndpoint(t *testing.T) {
	stub := &stubWatchService{urls: &service.PlaybackURLs{
		SignedURL: "https://cdn.example/hls/x/master.m3u8?sig=abc",
		Type:      "hls",
		BaseURL:   "https://cdn.example/hls/x/",
	}}
	router := newWatchRouter(stub)

	rec := get(t, router, "/watch?url=https://b.s3.r.amazonaws.com/hls/x/master.m3u8")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp service.PlaybackURLs
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hls", resp.Type)
	assert.Equal(t, stub.urls.BaseURL, resp.BaseURL)
}

func TestWatchEndpointRequiresURL(t *testing.T) {
	router := newWatchRouter(&stubWatchService{})

	rec := get(t, router, "/watch")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWatchEndpointValidationStatus(t *testing.T) {
	stub := &stubWatchService{watchErr: fmt.Errorf("%w: invalid video URL", service.ErrValidation)}
	router := newWatchRouter(stub)

	rec := get(t, router, "/watch?url=garbage")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHomeEndpointDefaults(t *testing.T) {
	stub := &stubWatchService{page: &service.VideoPage{Videos: []service.VideoSummary{}, Page: 1, Limit: 12}}
	router := newWatchRouter(stub)

	rec := get(t, router, "/watch/home")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", stub.gotQuery)
	assert.Equal(t, 1, stub.gotPage)
	assert.Equal(t, 12, stub.gotLimit)
}

func TestHomeEndpointPassesQueryParams(t *testing.T) {
	stub := &stubWatchService{page: &service.VideoPage{Page: 3, Limit: 6}}
	router := newWatchRouter(stub)

	rec := get(t, router, "/watch/home?q=go+basics&page=3&limit=6")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "go basics", stub.gotQuery)
	assert.Equal(t, 3, stub.gotPage)
	assert.Equal(t, 6, stub.gotLimit)
}

func TestSuggestionsEndpoint(t *testing.T) {
	stub := &stubWatchService{suggestions: []string{"go basics", "go advanced"}}
	router := newWatchRouter(stub)

	rec := get(t, router, "/watch/suggestions?q=go&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"go basics", "go advanced"}, resp["suggestions"])
	assert.Equal(t, 2, stub.gotLimit)
}

func TestSyncEndpoint(t *testing.T) {
	stub := &stubWatchService{report: search.BulkReport{Indexed: 40, Failed: 2}}
	router := newWatchRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/watch/sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(40), resp["indexed"])
	assert.Equal(t, float64(2), resp["failed"])
}

func TestIndexVideoEndpoint(t *testing.T) {
	stub := &stubWatchService{indexed: &domain.VideoAsset{ID: primitive.NewObjectID()}}
	router := newWatchRouter(stub)

	rec := postJSON(t, router, "/watch/index", `{"title":"t","url":"https://b.s3.r.amazonaws.com/k.mp4"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, stub.indexed.ID.Hex(), resp["id"])

	rec = postJSON(t, router, "/watch/index", `{"description":"missing required"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
