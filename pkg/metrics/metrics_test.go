package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestNewIsolatedRegistries(t *testing.T) {
	a := New()
	b := New()

	a.PairsEmittedTotal.Add(3)
	assert.Contains(t, scrape(t, a), "allpairs_pairs_emitted_total 3")
	assert.Contains(t, scrape(t, b), "allpairs_pairs_emitted_total 0")
}

func TestHandlerExposesLabels(t *testing.T) {
	m := New()
	m.ChunksTotal.WithLabelValues("ok").Inc()
	m.VectorsRead.WithLabelValues("b").Add(5)

	body := scrape(t, m)
	assert.Contains(t, body, `allpairs_chunks_total{status="ok"} 1`)
	assert.Contains(t, body, `allpairs_vectors_read_total{side="b"} 5`)
}
