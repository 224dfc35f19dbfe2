package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradelaw/internal/domain"
)

func TestInitCreatesMissingCollection(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/laws", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("api-key"))
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			var body map[string]map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.EqualValues(t, 3, body["vectors"]["size"])
			assert.Equal(t, "Cosine", body["vectors"]["distance"])
			created = true
		}
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, APIKey: "key", Collection: "laws"})
	require.NoError(t, s.Init(context.Background(), 3))
	assert.True(t, created)
}

func TestUpsertUsesUUIDPointIDs(t *testing.T) {
	var got struct {
		Points []struct {
			ID      string         `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/laws/points", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "laws"})
	err := s.Upsert(context.Background(),
		[]domain.Chunk{{DocumentID: "d", ChunkID: "d:0", Source: "laws/my.pdf", Text: "t"}},
		[][]float64{{1, 0}},
	)
	require.NoError(t, err)
	require.Len(t, got.Points, 1)
	assert.Equal(t, PointID("d:0"), got.Points[0].ID)
	assert.Len(t, got.Points[0].ID, 36)
	assert.Equal(t, "laws/my.pdf", got.Points[0].Payload["source"])
}

func TestSearchDecodesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/collections/laws/points/search", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":[{"score":0.9,"payload":{"document_id":"d","chunk_id":"d:1","source":"laws/sg.pdf","index":1,"text":"Imports of fruit need a licence."}}]}`))
	}))
	defer srv.Close()

	res, err := NewStorage(Config{URL: srv.URL, Collection: "laws"}).Search(context.Background(), []float64{1}, 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 0.9, res[0].Score)
	assert.Equal(t, domain.Chunk{DocumentID: "d", ChunkID: "d:1", Source: "laws/sg.pdf", Index: 1, Text: "Imports of fruit need a licence."}, res[0].Chunk)
}

func TestClearIgnoresMissingCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.NoError(t, NewStorage(Config{URL: srv.URL, Collection: "laws"}).Clear(context.Background()))
}

func TestSearchSurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewStorage(Config{URL: srv.URL, Collection: "laws"}).Search(context.Background(), []float64{1}, 5)
	assert.Error(t, err)
}
