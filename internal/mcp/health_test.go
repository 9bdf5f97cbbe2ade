package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/storage"
)

type fakeChecker struct {
	err      error
	statsErr error
}

func (f fakeChecker) Health(context.Context) error { return f.err }

func (f fakeChecker) Stats(context.Context) (*storage.Stats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return &storage.Stats{Backend: storage.BackendFile, Documents: 2, Chunks: 5}, nil
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		checker    fakeChecker
		wantCode   int
		wantStatus string
		wantDocs   int
	}{
		{"healthy", fakeChecker{}, http.StatusOK, "healthy", 2},
		{"unhealthy", fakeChecker{err: errors.New("disk gone")}, http.StatusServiceUnavailable, "unhealthy", 2},
		{"stats failure", fakeChecker{statsErr: errors.New("qdrant unreachable")}, http.StatusServiceUnavailable, "unhealthy", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.checker)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantDocs, resp.Documents)
			assert.Equal(t, tt.wantCode != http.StatusOK, resp.Error != "")
			assert.NotEmpty(t, resp.Timestamp)
		})
	}
}

func TestMux_RoutesLandingAndHealth(t *testing.T) {
	f := newFixture(t, nil)
	mux := NewMux(NewServer(f.cfg), nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "answer_query")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
