package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveTool(t *testing.T) {
	m := New()

	m.ObserveTool("search_laws", time.Now(), nil)
	m.ObserveTool("search_laws", time.Now(), errors.New("boom"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ToolCalls.WithLabelValues("search_laws")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolErrors.WithLabelValues("search_laws")))
}

func TestIngestCounters(t *testing.T) {
	m := New()

	m.DocumentsIngested.WithLabelValues("plain-text").Add(3)
	m.ChunksIngested.WithLabelValues("plain-text").Add(7)
	m.IngestFailures.WithLabelValues("plain-text").Inc()

	assert.Equal(t, float64(3), testutil.ToFloat64(m.DocumentsIngested.WithLabelValues("plain-text")))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.ChunksIngested.WithLabelValues("plain-text")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IngestFailures.WithLabelValues("plain-text")))
}

func TestIsolatedRegistries(t *testing.T) {
	a := New()
	b := New()

	a.EmbeddingRequests.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.EmbeddingRequests))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.EmbeddingRequests))
	assert.NotSame(t, a.Registry(), b.Registry())
}
