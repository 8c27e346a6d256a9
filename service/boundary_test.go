package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoCountries = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"NAME":"A"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
{"type":"Feature","properties":{"NAME":"B"},"geometry":{"type":"Polygon","coordinates":[[[2,2],[3,2],[3,3],[2,3],[2,2]]]}}
]}`

func TestHTTPBoundarySourceDegradesPerCollection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/countries.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(twoCountries))
	})
	mux.HandleFunc("/states.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewHTTPBoundarySource(srv.URL+"/countries.json", srv.URL+"/states.json", 0)
	b, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Len(t, b.Countries, 2)
	assert.Empty(t, b.States)
}

func TestHTTPBoundarySourceBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	b, err := NewHTTPBoundarySource(srv.URL, "", 0).Fetch(context.Background())
	require.Error(t, err)
	assert.Empty(t, b.Countries)
	assert.Empty(t, b.States)
}

func TestReadBoundaryFile(t *testing.T) {
	features, err := ReadBoundaryFile(strings.NewReader(twoCountries))
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, "B", features[1].Properties["NAME"])

	_, err = ReadBoundaryFile(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestStaticBoundarySourceHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := StaticBoundarySource{}.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPBoundarySourceReadsLocalFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "countries.json")
	require.NoError(t, os.WriteFile(path, []byte(twoCountries), 0o644))

	b, err := NewHTTPBoundarySource(path, filepath.Join(dir, "missing.json"), 0).Fetch(context.Background())
	require.Error(t, err)
	assert.Len(t, b.Countries, 2)
	assert.Empty(t, b.States)
}
