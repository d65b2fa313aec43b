package adminapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer-mesh/docring/internal/adminapi"
	"github.com/developer-mesh/docring/pkg/docserver"
)

type fakeRing struct {
	size  int
	stats []docserver.Stats
}

func (f *fakeRing) Size() int               { return f.size }
func (f *fakeRing) Stats() []docserver.Stats { return f.stats }

func TestHealthz(t *testing.T) {
	router := adminapi.NewRouter(&fakeRing{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRingSize(t *testing.T) {
	router := adminapi.NewRouter(&fakeRing{size: 3}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ring", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"size":3`)
}

func TestServerStats_Found(t *testing.T) {
	router := adminapi.NewRouter(&fakeRing{stats: []docserver.Stats{{ServerID: 1, CacheSize: 2}}}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/servers/1/stats", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"CacheSize":2`)
}

func TestServerStats_NotFound(t *testing.T) {
	router := adminapi.NewRouter(&fakeRing{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/servers/99/stats", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics(t *testing.T) {
	router := adminapi.NewRouter(&fakeRing{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
