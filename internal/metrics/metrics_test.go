package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New()

	m.IngestFiles.WithLabelValues(OutcomeIngested).Inc()
	m.IngestFiles.WithLabelValues(OutcomeDuplicate).Inc()
	m.ChunksWritten.Add(12)
	m.Retrievals.WithLabelValues(OutcomeHit).Inc()
	m.Passages.Observe(3)

	body := scrape(t, m)
	assert.Contains(t, body, `vergiai_ingest_files_total{outcome="duplicate"} 1`)
	assert.Contains(t, body, "vergiai_ingest_chunks_written_total 12")
	assert.Contains(t, body, `vergiai_retrieval_requests_total{outcome="hit"} 1`)
	assert.Contains(t, body, "vergiai_retrieval_passages_count 1")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ChunksWritten.Inc()

	assert.Contains(t, scrape(t, b), "vergiai_ingest_chunks_written_total 0")
}
