package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"streamgo/internal/domain"
	"streamgo/internal/queue"
	"streamgo/internal/storage"
)

// fakeUploadStorage is an in-memory multipart session: parts may arrive in
// any order, ListParts returns them in reverse arrival order to exercise
// the sort, and CompleteMultipartUpload assembles bytes in the order given.
type fakeUploadStorage struct {
	mu            sync.Mutex
	uploadID      string
	parts         map[int32][]byte
	arrival       []int32
	completedWith []domain.UploadPart
	assembled     []byte
	deleted       []string
	calls         *[]string

	listErr     error
	completeErr error
}

func newFakeUploadStorage(calls *[]string) *fakeUploadStorage {
	return &fakeUploadStorage{uploadID: "upload-1", parts: make(map[int32][]byte), calls: calls}
}

func (f *fakeUploadStorage) InitiateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	return f.uploadID, nil
}

func (f *fakeUploadStorage) UploadPart(ctx context.Context, key, uploadID string, partNumber int32, body io.Reader) (string, error) {
	data, _ := io.ReadAll(body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parts[partNumber] = data
	f.arrival = append(f.arrival, partNumber)
	return fmt.Sprintf("etag-%d", partNumber), nil
}

func (f *fakeUploadStorage) ListParts(ctx context.Context, key, uploadID string) ([]domain.UploadPart, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// Reverse arrival order: the caller owns the sort invariant.
	var parts []domain.UploadPart
	for i := len(f.arrival) - 1; i >= 0; i-- {
		n := f.arrival[i]
		parts = append(parts, domain.UploadPart{PartNumber: n, ETag: fmt.Sprintf("etag-%d", n)})
	}
	return parts, nil
}

func (f *fakeUploadStorage) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []domain.UploadPart) (string, error) {
	if f.completeErr != nil {
		return "", f.completeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completedWith = parts
	var buf bytes.Buffer
	for _, p := range parts {
		buf.Write(f.parts[p.PartNumber])
	}
	f.assembled = buf.Bytes()
	return "https://test-bucket.s3.local.amazonaws.com/" + key, nil
}

func (f *fakeUploadStorage) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	return nil
}

func (f *fakeUploadStorage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.assembled)), nil
}

func (f *fakeUploadStorage) PutObject(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	return nil
}

func (f *fakeUploadStorage) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeUploadStorage) PresignGetObject(ctx context.Context, bucket, key string, opts storage.PresignOptions) (string, error) {
	return "", errors.New("not implemented")
}

// fakeQueue records publishes and can be told to fail.
type fakeQueue struct {
	published  []publishedMessage
	publishErr error
	calls      *[]string
}

type publishedMessage struct {
	topic string
	key   []byte
	value []byte
}

func (q *fakeQueue) Publish(ctx context.Context, topic string, key, value []byte) error {
	if q.publishErr != nil {
		return fmt.Errorf("%w: %v", queue.ErrPublishFailed, q.publishErr)
	}
	if q.calls != nil {
		*q.calls = append(*q.calls, "publish")
	}
	q.published = append(q.published, publishedMessage{topic: topic, key: key, value: value})
	return nil
}

func (q *fakeQueue) Subscribe(ctx context.Context, topic, groupID string, handler queue.Handler) error {
	return errors.New("not implemented")
}

func (q *fakeQueue) Close() error { return nil }

// fakeVideoRepo records created video assets.
type fakeVideoRepo struct {
	created   []*domain.VideoAsset
	createErr error
	calls     *[]string
}

func (r *fakeVideoRepo) Create(ctx context.Context, video *domain.VideoAsset) (primitive.ObjectID, error) {
	if r.createErr != nil {
		return primitive.NilObjectID, r.createErr
	}
	if r.calls != nil {
		*r.calls = append(*r.calls, "create")
	}
	video.ID = primitive.NewObjectID()
	r.created = append(r.created, video)
	return video.ID, nil
}

func (r *fakeVideoRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.VideoAsset, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeVideoRepo) List(ctx context.Context, page, limit int) ([]domain.VideoAsset, int64, error) {
	var out []domain.VideoAsset
	for _, v := range r.created {
		out = append(out, *v)
	}
	return out, int64(len(out)), nil
}

func (r *fakeVideoRepo) All(ctx context.Context) ([]domain.VideoAsset, error) {
	var out []domain.VideoAsset
	for _, v := range r.created {
		out = append(out, *v)
	}
	return out, nil
}

func (r *fakeVideoRepo) Delete(ctx context.Context, id primitive.ObjectID) error { return nil }

func newUploadFixture() (*fakeUploadStorage, *fakeQueue, *fakeVideoRepo, UploadService) {
	var calls []string
	st := newFakeUploadStorage(&calls)
	q := &fakeQueue{calls: &calls}
	repo := &fakeVideoRepo{calls: &calls}
	return st, q, repo, NewUploadService(st, q, repo, "transcode")
}

func TestInitializeUploadRequiresFilename(t *testing.T) {
	_, _, _, svc := newUploadFixture()

	_, err := svc.InitializeUpload(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInitializeUploadDerivesCollisionResistantKey(t *testing.T) {
	_, _, _, svc := newUploadFixture()

	first, err := svc.InitializeUpload(context.Background(), "lecture.mp4")
	require.NoError(t, err)
	second, err := svc.InitializeUpload(context.Background(), "lecture.mp4")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first.ObjectKey, "lecture-"))
	assert.True(t, strings.HasSuffix(first.ObjectKey, ".mp4"))
	assert.NotEqual(t, first.ObjectKey, second.ObjectKey, "same filename must not collide")
	assert.Equal(t, domain.UploadInitialized, first.Status)
}

func TestUploadChunkUsesPartNumberOffset(t *testing.T) {
	st, _, _, svc := newUploadFixture()

	eTag, err := svc.UploadChunk(context.Background(), "k", "upload-1", 0, strings.NewReader("AA"))
	require.NoError(t, err)
	assert.Equal(t, "etag-1", eTag)
	assert.Equal(t, []int32{1}, st.arrival, "part number is chunkIndex+1")
}

func TestUploadChunkValidation(t *testing.T) {
	_, _, _, svc := newUploadFixture()

	_, err := svc.UploadChunk(context.Background(), "", "u", 0, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UploadChunk(context.Background(), "k", "", 0, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UploadChunk(context.Background(), "k", "u", -1, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCompleteUploadAssemblesChunksInPartOrder(t *testing.T) {
	st, q, repo, svc := newUploadFixture()
	ctx := context.Background()

	// Chunks arrive out of order: [2, 0, 1].
	for _, idx := range []int{2, 0, 1} {
		content := map[int]string{0: "AA", 1: "BB", 2: "CC"}[idx]
		_, err := svc.UploadChunk(ctx, "lecture-x.mp4", "upload-1", idx, strings.NewReader(content))
		require.NoError(t, err)
	}

	location, err := svc.CompleteUpload(ctx, "upload-1", "lecture-x.mp4", "Lecture", "desc", "alice")
	require.NoError(t, err)
	assert.Equal(t, "https://test-bucket.s3.local.amazonaws.com/lecture-x.mp4", location)

	// Finalize receives parts sorted strictly ascending by part number, so
	// the object is byte-identical to a sequential upload.
	require.Len(t, st.completedWith, 3)
	for i, p := range st.completedWith {
		assert.Equal(t, int32(i+1), p.PartNumber)
	}
	assert.Equal(t, []byte("AABBCC"), st.assembled)

	// The ingest event carries the finalized location.
	require.Len(t, q.published, 1)
	assert.Equal(t, "transcode", q.published[0].topic)
	var job domain.TranscodeJob
	require.NoError(t, json.Unmarshal(q.published[0].value, &job))
	assert.Equal(t, "Lecture", job.Title)
	assert.Equal(t, location, job.URL)
	assert.False(t, job.Timestamp.IsZero())

	// Metadata exists and references the same immutable URL.
	require.Len(t, repo.created, 1)
	assert.Equal(t, location, repo.created[0].URL)
}

func TestCompleteUploadPublishesBeforePersisting(t *testing.T) {
	st, _, _, svc := newUploadFixture()
	ctx := context.Background()

	_, err := svc.UploadChunk(ctx, "k", "upload-1", 0, strings.NewReader("AA"))
	require.NoError(t, err)
	_, err = svc.CompleteUpload(ctx, "upload-1", "k", "t", "", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"publish", "create"}, *st.calls)
}

func TestCompleteUploadRollsBackOnPublishFailure(t *testing.T) {
	st, q, repo, svc := newUploadFixture()
	q.publishErr = errors.New("broker down")
	ctx := context.Background()

	_, err := svc.UploadChunk(ctx, "lecture-x.mp4", "upload-1", 0, strings.NewReader("AA"))
	require.NoError(t, err)

	_, err = svc.CompleteUpload(ctx, "upload-1", "lecture-x.mp4", "t", "", "")
	require.ErrorIs(t, err, ErrQueue)

	// No metadata row without a dispatched job, and the finalized object is
	// deleted so it never remains reachable.
	assert.Empty(t, repo.created)
	assert.Equal(t, []string{"lecture-x.mp4"}, st.deleted)
}

func TestCompleteUploadFailsWithoutParts(t *testing.T) {
	_, _, repo, svc := newUploadFixture()

	_, err := svc.CompleteUpload(context.Background(), "upload-1", "k", "t", "", "")
	assert.ErrorIs(t, err, ErrStorage)
	assert.Empty(t, repo.created)
}

func TestCompleteUploadValidation(t *testing.T) {
	_, _, _, svc := newUploadFixture()

	_, err := svc.CompleteUpload(context.Background(), "", "k", "t", "", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CompleteUpload(context.Background(), "u", "", "t", "", "")
	assert.ErrorIs(t, err, ErrValidation)
}
