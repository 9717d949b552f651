package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beaconlabs-io/muse-evidence/internal/chunker"
	"github.com/beaconlabs-io/muse-evidence/internal/evidence"
	"github.com/beaconlabs-io/muse-evidence/internal/indexer"
	"github.com/beaconlabs-io/muse-evidence/internal/llm"
	"github.com/beaconlabs-io/muse-evidence/internal/matcher"
	"github.com/beaconlabs-io/muse-evidence/internal/retriever"
	"github.com/beaconlabs-io/muse-evidence/internal/vectorstore"
)

// fakeStore is an in-memory Store good enough to exercise the handlers.
type fakeStore struct {
	docs      map[string]vectorstore.Document
	searchErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]vectorstore.Document)}
}

func (f *fakeStore) AddDocuments(ctx context.Context, docs []vectorstore.Document) ([]string, error) {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		f.docs[d.ID] = d
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (f *fakeStore) Search(ctx context.Context, query string, k int) ([]vectorstore.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var results []vectorstore.SearchResult
	for _, d := range f.docs {
		results = append(results, vectorstore.SearchResult{
			ID:       d.ID,
			Content:  d.Content,
			Score:    0.9,
			Metadata: d.Metadata,
		})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

func (f *fakeStore) Clear(ctx context.Context) error {
	f.docs = make(map[string]vectorstore.Document)
	return nil
}

func (f *fakeStore) Info(ctx context.Context) (*vectorstore.CollectionInfo, error) {
	return &vectorstore.CollectionInfo{Name: "test", PointCount: int64(len(f.docs))}, nil
}

func (f *fakeStore) Close() error { return nil }

// fakeCompleter scores every candidate the same.
type fakeCompleter struct {
	score int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "search keywords") {
		return `{"keywords": ["k1", "k2"]}`, nil
	}
	return fmt.Sprintf(`{"score": %d, "reasoning": "test"}`, f.score), nil
}

var _ llm.Completer = (*fakeCompleter)(nil)

func newTestServer(t *testing.T, store vectorstore.Store) *Server {
	t.Helper()

	dir := t.TempDir()
	content := "---\ntitle: Test Study\nstrength: 4\n---\nbody text about class size and test scores\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc1.md"), []byte(content), 0o644))

	loader, err := evidence.NewLoader(dir, nil)
	require.NoError(t, err)
	splitter, err := chunker.New(chunker.Config{})
	require.NoError(t, err)

	idx := indexer.New(loader, splitter, store, nil)
	ret := retriever.New(store, nil)
	match := matcher.New(ret, &fakeCompleter{score: 85}, matcher.Options{}, nil)

	server, err := NewServer(idx, ret, match, zap.NewNop(), Config{Port: 0})
	require.NoError(t, err)
	return server
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echoHeaderContentType, "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, newFakeStore())

	rec := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleIndex(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	rec := doRequest(s, http.MethodGet, "/api/v1/index", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp IndexResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, 1, resp.Data.Embedded)
	assert.Equal(t, int64(0), resp.Data.VectorsBefore)
	assert.Equal(t, int64(1), resp.Data.VectorsAfter)
	assert.NotEmpty(t, resp.Data.LastUpdated)
	assert.NotEmpty(t, store.docs)
}

func TestHandleRetrieve(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	// Index first so there is something to find.
	rec := doRequest(s, http.MethodGet, "/api/v1/index", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/retrieve", `{"query": "class size", "topK": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp retriever.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Evidence)
	assert.Equal(t, "doc1", resp.Evidence[0].DocumentID)
	assert.Equal(t, "class size", resp.QueryUsed)
}

func TestHandleRetrieve_MissingQuery(t *testing.T) {
	s := newTestServer(t, newFakeStore())

	rec := doRequest(s, http.MethodPost, "/api/v1/retrieve", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMatch(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store)

	rec := doRequest(s, http.MethodGet, "/api/v1/index", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/match", `{"from": "smaller classes", "to": "higher scores"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "doc1", resp.Matches[0].DocumentID)
	assert.Equal(t, 85, resp.Matches[0].Score)
	assert.False(t, resp.Matches[0].HasWarning)
}

func TestHandleMatch_MissingFields(t *testing.T) {
	s := newTestServer(t, newFakeStore())

	rec := doRequest(s, http.MethodPost, "/api/v1/match", `{"from": "only one side"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMatch_EmptyMatchesIsArray(t *testing.T) {
	// No indexed documents: the matcher finds nothing, and the response
	// carries an empty array rather than null.
	s := newTestServer(t, newFakeStore())

	rec := doRequest(s, http.MethodPost, "/api/v1/match", `{"from": "a", "to": "b"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"matches":[]`)
}
