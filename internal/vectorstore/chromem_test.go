package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconlabs-io/muse-evidence/internal/vectorstore"
)

// testEmbedder returns deterministic normalized vectors.
type testEmbedder struct {
	vectorSize int
}

func (e *testEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.makeEmbedding(text)
	}
	return embeddings, nil
}

func (e *testEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.makeEmbedding(text), nil
}

func (e *testEmbedder) makeEmbedding(text string) []float32 {
	embedding := make([]float32, e.vectorSize)
	hash := 0
	for _, c := range text {
		hash = (hash*31 + int(c)) % 1000
	}
	var sumSq float32
	for i := range embedding {
		embedding[i] = float32((hash+i)%100) / 100.0
		sumSq += embedding[i] * embedding[i]
	}
	// chromem expects unit vectors
	if sumSq > 0 {
		norm := float32(1.0) / sqrt32(sumSq)
		for i := range embedding {
			embedding[i] *= norm
		}
	}
	return embedding
}

func sqrt32(x float32) float32 {
	if x <= 0 {
		return 0
	}
	z := x / 2
	for i := 0; i < 10; i++ {
		z = (z + x/z) / 2
	}
	return z
}

func newTestChromemStore(t *testing.T) *vectorstore.ChromemStore {
	t.Helper()

	config := vectorstore.ChromemConfig{
		Path:       t.TempDir(),
		Collection: "test_collection",
		VectorSize: 16,
	}
	store, err := vectorstore.NewChromemStore(config, &testEmbedder{vectorSize: 16}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestChromemStore_AddAndSearch(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	docs := []vectorstore.Document{
		{
			ID:      "doc1#0",
			Content: "class size reduction improves test scores",
			Metadata: map[string]interface{}{
				vectorstore.MetaDocumentID: "doc1",
				vectorstore.MetaTitle:      "Class Size Study",
				vectorstore.MetaChunkIndex: 0,
			},
		},
		{
			ID:      "doc2#0",
			Content: "teacher training affects student outcomes",
			Metadata: map[string]interface{}{
				vectorstore.MetaDocumentID: "doc2",
				vectorstore.MetaTitle:      "Teacher Training Study",
				vectorstore.MetaChunkIndex: 0,
			},
		},
	}

	ids, err := store.AddDocuments(ctx, docs)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	results, err := store.Search(ctx, "class size reduction improves test scores", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// The identical text embeds identically, so doc1 must rank first.
	assert.Equal(t, "doc1#0", results[0].ID)
	assert.Equal(t, "doc1", results[0].Metadata[vectorstore.MetaDocumentID])
	assert.Equal(t, "Class Size Study", results[0].Metadata[vectorstore.MetaTitle])
}

func TestChromemStore_AddEmptyDocuments(t *testing.T) {
	store := newTestChromemStore(t)

	_, err := store.AddDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, vectorstore.ErrEmptyDocuments)
}

func TestChromemStore_SearchEmptyCollection(t *testing.T) {
	store := newTestChromemStore(t)

	results, err := store.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_SearchCapsK(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, []vectorstore.Document{
		{ID: "a", Content: "alpha", Metadata: map[string]interface{}{vectorstore.MetaDocumentID: "a"}},
	})
	require.NoError(t, err)

	// k larger than the collection must not error.
	results, err := store.Search(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromemStore_Clear(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, []vectorstore.Document{
		{ID: "a", Content: "alpha", Metadata: map[string]interface{}{vectorstore.MetaDocumentID: "a"}},
		{ID: "b", Content: "beta", Metadata: map[string]interface{}{vectorstore.MetaDocumentID: "b"}},
	})
	require.NoError(t, err)

	info, err := store.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.PointCount)

	require.NoError(t, store.Clear(ctx))

	info, err = store.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.PointCount)
}

func TestChromemStore_ReAddSupersedes(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	doc := vectorstore.Document{
		ID:       "doc1#0",
		Content:  "original content",
		Metadata: map[string]interface{}{vectorstore.MetaDocumentID: "doc1"},
	}
	_, err := store.AddDocuments(ctx, []vectorstore.Document{doc})
	require.NoError(t, err)

	doc.Content = "updated content"
	_, err = store.AddDocuments(ctx, []vectorstore.Document{doc})
	require.NoError(t, err)

	info, err := store.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.PointCount)

	results, err := store.Search(ctx, "updated content", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "updated content", results[0].Content)
}

func TestValidateCollectionName(t *testing.T) {
	assert.NoError(t, vectorstore.ValidateCollectionName("evidence"))
	assert.NoError(t, vectorstore.ValidateCollectionName("evidence_v2"))
	assert.Error(t, vectorstore.ValidateCollectionName(""))
	assert.Error(t, vectorstore.ValidateCollectionName("Evidence"))
	assert.Error(t, vectorstore.ValidateCollectionName("has space"))
	assert.Error(t, vectorstore.ValidateCollectionName("has-dash"))
}
