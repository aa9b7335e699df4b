package propagator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamgo/internal/search"
)

type fakeIndex struct {
	docs     map[string]search.Document
	deleted  []string
	indexErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(map[string]search.Document)}
}

func (f *fakeIndex) EnsureIndex(ctx context.Context) error { return nil }

func (f *fakeIndex) IndexVideo(ctx context.Context, doc search.Document) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeIndex) DeleteVideo(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, query string, page, limit int) (*search.Result, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeIndex) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeIndex) BulkIndex(ctx context.Context, docs []search.Document) (search.BulkReport, error) {
	return search.BulkReport{}, errors.New("not implemented")
}

func TestHandleMessageCreateIndexesAfterImage(t *testing.T) {
	index := newFakeIndex()
	p := NewPropagator(index)

	event := `{"payload":{"op":"c","after":{"id":"64f0c2","title":"Go Basics","description":"intro","author":"alice","url":"https://b.s3.r.amazonaws.com/k.mp4"}}}`
	require.NoError(t, p.HandleMessage(context.Background(), nil, []byte(event)))

	doc, ok := index.docs["64f0c2"]
	require.True(t, ok)
	assert.Equal(t, "Go Basics", doc.Title)
	assert.Equal(t, "Go Basics intro alice", doc.Text)
}

func TestHandleMessageUpdateOverwrites(t *testing.T) {
	index := newFakeIndex()
	p := NewPropagator(index)
	ctx := context.Background()

	create := `{"payload":{"op":"c","after":{"id":"a1","title":"Old"}}}`
	update := `{"payload":{"op":"u","before":{"id":"a1","title":"Old"},"after":{"id":"a1","title":"New"}}}`
	require.NoError(t, p.HandleMessage(ctx, nil, []byte(create)))
	require.NoError(t, p.HandleMessage(ctx, nil, []byte(update)))

	assert.Equal(t, "New", index.docs["a1"].Title)
	assert.Len(t, index.docs, 1)
}

func TestHandleMessageDeleteUsesBeforeImage(t *testing.T) {
	index := newFakeIndex()
	index.docs["a1"] = search.Document{ID: "a1"}
	p := NewPropagator(index)

	event := `{"payload":{"op":"d","before":{"id":"a1","title":"Gone"},"after":null}}`
	require.NoError(t, p.HandleMessage(context.Background(), nil, []byte(event)))

	assert.Equal(t, []string{"a1"}, index.deleted)
	assert.Empty(t, index.docs)
}

func TestHandleMessageAcceptsNumericIDs(t *testing.T) {
	index := newFakeIndex()
	p := NewPropagator(index)

	event := `{"payload":{"op":"c","after":{"id":42,"title":"Numeric"}}}`
	require.NoError(t, p.HandleMessage(context.Background(), nil, []byte(event)))

	_, ok := index.docs["42"]
	assert.True(t, ok)
}

func TestHandleMessageSkipsMalformedEvents(t *testing.T) {
	index := newFakeIndex()
	p := NewPropagator(index)
	ctx := context.Background()

	// None of these may error: a poison message must not wedge the stream.
	for _, raw := range []string{
		`{not json`,
		`{"payload":null}`,
		`{}`,
		`{"payload":{"op":"c","after":null}}`,
		`{"payload":{"op":"c","after":{"title":"no id"}}}`,
		`{"payload":{"op":"d","before":null}}`,
		`{"payload":{"op":"r","after":{"id":"snapshot"}}}`,
	} {
		assert.NoError(t, p.HandleMessage(ctx, nil, []byte(raw)), "input %s", raw)
	}
	assert.Empty(t, index.docs)
	assert.Empty(t, index.deleted)
}

func TestHandleMessageSurfacesIndexErrors(t *testing.T) {
	index := newFakeIndex()
	index.indexErr = errors.New("cluster red")
	p := NewPropagator(index)

	event := `{"payload":{"op":"c","after":{"id":"a1","title":"x"}}}`
	err := p.HandleMessage(context.Background(), nil, []byte(event))
	assert.Error(t, err, "index failures propagate so the consumer can log them")
}
