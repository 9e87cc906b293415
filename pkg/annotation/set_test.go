package annotation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardar/annalign/pkg/blobstore"
	"github.com/gardar/annalign/pkg/textcoord"
)

// countingStore is an in-memory Storage that counts read operations.
type countingStore struct {
	blobs map[string][]byte
	reads int
}

func newCountingStore() *countingStore {
	return &countingStore{blobs: map[string][]byte{}}
}

func (s *countingStore) GetContentStream(ctx context.Context, key string) (io.ReadCloser, error) {
	data, err := s.GetObjectContent(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *countingStore) GetObjectContent(ctx context.Context, key string) ([]byte, error) {
	s.reads++
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("no blob %s", key)
	}
	return data, nil
}

func (s *countingStore) WriteFileObj(ctx context.Context, r io.Reader, key string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.blobs[key] = data
	return nil
}

func (s *countingStore) WriteBytes(ctx context.Context, data []byte, key string) error {
	s.blobs[key] = data
	return nil
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	delete(s.blobs, key)
	return nil
}

func TestAddRegeneratesCollidingUUID(t *testing.T) {
	set := NewSet(nil)
	set.Add(&Annotation{UUID: "same", Label: "a", Range: Span{Start: 0, End: 1}, Text: "x"})

	incoming := &Annotation{UUID: "same", Label: "b", Range: Span{Start: 2, End: 3}, Text: "y"}
	set.Add(incoming)

	assert.Len(t, set.Directory, 2)
	assert.NotEqual(t, "same", incoming.UUID)
	assert.Equal(t, "a", set.Directory["same"].Label)
}

func TestRemoveDuplicateEntriesIdempotent(t *testing.T) {
	a := &Annotation{Label: "sign", Range: Span{Start: 0, End: 4}, Text: "pain"}
	b1 := &Annotation{Label: "lab", Range: Span{Start: 10, End: 13}, Text: "299"}
	b2 := &Annotation{Label: "lab", Range: Span{Start: 10, End: 13}, Text: "299"}
	set := FromList([]*Annotation{a, b1, b2}, nil)
	require.Len(t, set.Directory, 3)

	set.RemoveDuplicateEntries()
	assert.Len(t, set.Directory, 2)

	set.RemoveDuplicateEntries()
	assert.Len(t, set.Directory, 2)

	assert.True(t, set.HasMatchingAnnotation("sign", Span{Start: 0, End: 4}, "pain"))
	assert.True(t, set.HasMatchingAnnotation("lab", Span{Start: 10, End: 13}, "299"))
}

func TestEntriesByLabelReturnsLiveReferences(t *testing.T) {
	set := FromList([]*Annotation{
		{Label: "lab", Range: Span{Start: 0, End: 1}, Text: "a"},
		{Label: "sign", Range: Span{Start: 2, End: 3}, Text: "b"},
	}, nil)

	entries := set.EntriesByLabel("lab")
	require.Len(t, entries, 1)
	entries[0].Text = "mutated"

	assert.True(t, set.HasMatchingAnnotation("lab", Span{Start: 0, End: 1}, "mutated"))
}

func TestToFileContentSortedByRange(t *testing.T) {
	set := FromList([]*Annotation{
		{UUID: "u2", Label: "b", Range: Span{Start: 50, End: 60}, Text: "later"},
		{UUID: "u1", Label: "a", Range: Span{Start: 5, End: 9}, Text: "early"},
	}, nil)

	content := set.ToFileContent()
	assert.Equal(t, "u1\ta 5 9\tearly\nu2\tb 50 60\tlater\n", content)

	// File content round-trips through the line parser.
	reloaded := FromFileContent(content, nil)
	assert.Len(t, reloaded.Directory, 2)
}

func TestFromBiomedOutput(t *testing.T) {
	payload := []byte(`{
		"VersionInfo": [],
		"Medication": [
			{"text": "warfarin", "range": [100, 108], "label": "drug"},
			{"text": "5mg", "range": [109, 112], "label": "dosage"}
		]
	}`)

	set, err := FromBiomedOutput(payload, nil)
	require.NoError(t, err)
	require.Len(t, set.Directory, 2)

	drugs := set.EntriesByLabel("drug")
	require.Len(t, drugs, 1)
	assert.Equal(t, "Medication", drugs[0].CategoryLabel)
	assert.Equal(t, Span{Start: 100, End: 108}, drugs[0].Range)
}

func TestAddAnnotationFromCoordinates(t *testing.T) {
	coords := textcoord.NewSet()
	coords.Add(&textcoord.Coordinate{Text: "atrial", Order: 0, DocumentIndexFirst: 741, DocumentIndexLast: 746, Line: 3, Spaces: 1})
	coords.Add(&textcoord.Coordinate{Text: "fibril", Order: 1, DocumentIndexFirst: 748, DocumentIndexLast: 753, Line: 3, Hyphen: true, NewLine: true})
	coords.Add(&textcoord.Coordinate{Text: "lation", Order: 2, DocumentIndexFirst: 754, DocumentIndexLast: 759, Line: 4})

	set := NewSet(nil)
	a, err := set.AddAnnotation([]string{"0", "1", "2"}, "diagnosis", "DiseaseDisorder", coords)
	require.NoError(t, err)

	assert.Equal(t, "atrial fibril-lation", a.Text)
	assert.Equal(t, Span{Start: 741, End: 760}, a.Range)
	assert.Equal(t, 3, a.LineStart)
	assert.Equal(t, 4, a.LineStop)
	assert.Equal(t, []string{"0", "1", "2"}, a.CoordUUIDs)
	assert.Len(t, set.Directory, 1)

	_, err = set.AddAnnotation([]string{"missing"}, "diagnosis", "DiseaseDisorder", coords)
	assert.Error(t, err)
}

func TestAddAnnotationDuplicateDocumentBlanksText(t *testing.T) {
	coords := textcoord.NewSet()
	coords.Add(&textcoord.Coordinate{Text: "whole", Order: 0, DocumentIndexFirst: 0, DocumentIndexLast: 4, Line: 1, Spaces: 1})
	coords.Add(&textcoord.Coordinate{Text: "page", Order: 1, DocumentIndexFirst: 6, DocumentIndexLast: 9, Line: 1})

	set := NewSet(nil)
	a, err := set.AddAnnotation([]string{"0", "1"}, "duplicate_document", CategoryDuplicateDocument, coords)
	require.NoError(t, err)

	assert.Empty(t, a.Text)
	assert.Equal(t, Span{Start: 0, End: 10}, a.Range)
}

func TestStorageCacheCoherence(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	cache := blobstore.NewLRUCache(8, time.Minute)

	set := FromList([]*Annotation{
		{Label: "sign", Range: Span{Start: 0, End: 4}, Text: "pain"},
	}, nil)
	require.NoError(t, set.ToStorage(ctx, store, cache, "doc.ann"))

	loaded, err := FromStorage(ctx, store, cache, "doc.ann", nil)
	require.NoError(t, err)
	assert.Same(t, set, loaded)
	assert.Equal(t, 0, store.reads)

	require.NoError(t, DeleteStorage(ctx, store, cache, "doc.ann"))
	_, err = FromStorage(ctx, store, cache, "doc.ann", nil)
	assert.Error(t, err)
}

func TestStorageRoundTripWithoutCache(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()

	set := FromList([]*Annotation{
		{UUID: "u1", Label: "lab", Range: Span{Start: 3, End: 6}, Text: "299"},
	}, nil)
	require.NoError(t, set.ToStorage(ctx, store, nil, "doc.ann"))

	loaded, err := FromStorage(ctx, store, nil, "doc.ann", nil)
	require.NoError(t, err)
	assert.True(t, loaded.HasMatchingAnnotation("lab", Span{Start: 3, End: 6}, "299"))
}
