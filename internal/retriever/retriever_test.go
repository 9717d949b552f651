package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconlabs-io/muse-evidence/internal/vectorstore"
)

// fakeStore serves canned search results.
type fakeStore struct {
	results   []vectorstore.SearchResult
	searchErr error
	lastK     int
}

func (f *fakeStore) AddDocuments(ctx context.Context, docs []vectorstore.Document) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) Search(ctx context.Context, query string, k int) ([]vectorstore.SearchResult, error) {
	f.lastK = k
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *fakeStore) Clear(ctx context.Context) error                          { return nil }
func (f *fakeStore) Info(ctx context.Context) (*vectorstore.CollectionInfo, error) { return nil, nil }
func (f *fakeStore) Close() error                                             { return nil }

var _ vectorstore.Store = (*fakeStore)(nil)

func hit(chunkID, docID, title string, score float32) vectorstore.SearchResult {
	return vectorstore.SearchResult{
		ID:      chunkID,
		Content: "chunk content of " + chunkID,
		Score:   score,
		Metadata: map[string]interface{}{
			vectorstore.MetaDocumentID: docID,
			vectorstore.MetaTitle:      title,
		},
	}
}

func TestRetrieve_DeduplicatesByDocument(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		hit("doc1#0", "doc1", "First", 0.95),
		hit("doc1#3", "doc1", "First", 0.91),
		hit("doc2#1", "doc2", "Second", 0.88),
		hit("doc1#7", "doc1", "First", 0.80),
		hit("doc3#0", "doc3", "Third", 0.75),
	}}
	svc := New(store, nil)

	result, err := svc.Retrieve(context.Background(), "query", 5)
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalRetrieved)
	require.Len(t, result.Evidence, 3)
	assert.Equal(t, "doc1", result.Evidence[0].DocumentID)
	assert.Equal(t, float32(0.95), result.Evidence[0].Score)
	assert.Equal(t, "doc2", result.Evidence[1].DocumentID)
	assert.Equal(t, "doc3", result.Evidence[2].DocumentID)
}

func TestRetrieve_TruncatesToTopK(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		hit("a#0", "a", "A", 0.9),
		hit("b#0", "b", "B", 0.8),
		hit("c#0", "c", "C", 0.7),
		hit("d#0", "d", "D", 0.6),
	}}
	svc := New(store, nil)

	result, err := svc.Retrieve(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Len(t, result.Evidence, 2)
	assert.Equal(t, "a", result.Evidence[0].DocumentID)
	assert.Equal(t, "b", result.Evidence[1].DocumentID)
}

func TestRetrieve_Overfetches(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, nil)

	_, err := svc.Retrieve(context.Background(), "query", 5)
	require.NoError(t, err)
	assert.Equal(t, 20, store.lastK)
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, nil)

	_, err := svc.Retrieve(context.Background(), "query", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK*overfetchFactor, store.lastK)
}

func TestRetrieve_EmptyResultIsNotError(t *testing.T) {
	svc := New(&fakeStore{}, nil)

	result, err := svc.Retrieve(context.Background(), "no matches for this", 5)
	require.NoError(t, err)
	assert.Empty(t, result.Evidence)
	assert.Equal(t, 0, result.TotalRetrieved)
	assert.Equal(t, "no matches for this", result.QueryUsed)
}

func TestRetrieve_SearchFailureWrapsErrRetrieval(t *testing.T) {
	svc := New(&fakeStore{searchErr: errors.New("connection refused")}, nil)

	_, err := svc.Retrieve(context.Background(), "query", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrieval)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	svc := New(&fakeStore{}, nil)

	_, err := svc.Retrieve(context.Background(), "   ", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrieval)
}

func TestRetrieve_MetadataMapping(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		{
			ID:      "doc1#0",
			Content: "an excerpt",
			Score:   0.9,
			Metadata: map[string]interface{}{
				vectorstore.MetaDocumentID: "doc1",
				vectorstore.MetaTitle:      "Study Title",
				vectorstore.MetaCitation:   "Author (2021). Study.",
				vectorstore.MetaTags:       "education,policy",
				vectorstore.MetaStrength:   4,
				vectorstore.MetaResults:    `[{"intervention":"tutoring","outcome_variable":"grades"}]`,
			},
		},
	}}
	svc := New(store, nil)

	result, err := svc.Retrieve(context.Background(), "query", 1)
	require.NoError(t, err)
	require.Len(t, result.Evidence, 1)

	ev := result.Evidence[0]
	assert.Equal(t, "Study Title", ev.Title)
	assert.Equal(t, "an excerpt", ev.Summary)
	assert.Equal(t, "Author (2021). Study.", ev.Citation)
	assert.Equal(t, []string{"education", "policy"}, ev.Tags)
	require.NotNil(t, ev.Strength)
	assert.Equal(t, 4, ev.Strength.Int())
	require.Len(t, ev.Results, 1)
	assert.Equal(t, "tutoring", ev.Results[0].Intervention)
}

func TestStrengthFromMetadata_BackendTypes(t *testing.T) {
	// chromem round-trips metadata as strings, qdrant as numbers.
	for _, v := range []interface{}{"3", 3, int64(3), float64(3)} {
		s := strengthFromMetadata(v)
		require.NotNil(t, s, "value %T(%v)", v, v)
		assert.Equal(t, 3, s.Int())
	}
	assert.Nil(t, strengthFromMetadata(nil))
	assert.Nil(t, strengthFromMetadata("not a number"))
	assert.Nil(t, strengthFromMetadata(9))
}

func TestRetrieve_SkipsChunksWithoutDocumentID(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		{ID: "orphan", Content: "no metadata", Score: 0.99, Metadata: map[string]interface{}{}},
		hit("doc1#0", "doc1", "First", 0.9),
	}}
	svc := New(store, nil)

	result, err := svc.Retrieve(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, result.Evidence, 1)
	assert.Equal(t, "doc1", result.Evidence[0].DocumentID)
}
