// Copyright 2025 The Legal-MCP Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package observability holds the process metrics. Registration is local
// to a Metrics value so tests can use isolated registries; exporter wiring
// is the host's concern.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the counters and histograms of the tool surface and the
// ingestion/search paths.
type Metrics struct {
	registry *prometheus.Registry

	ToolCalls    *prometheus.CounterVec
	ToolErrors   *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec

	DocumentsIngested *prometheus.CounterVec
	ChunksIngested    *prometheus.CounterVec
	IngestFailures    *prometheus.CounterVec

	EmbeddingRequests prometheus.Counter
	EmbeddingFailures prometheus.Counter
	EmbeddingDuration prometheus.Histogram

	SearchQueries  *prometheus.CounterVec
	SearchDuration *prometheus.HistogramVec
}

// New creates metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := func(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
		c := prometheus.NewCounterVec(opts, labels)
		registry.MustRegister(c)
		return c
	}

	m := &Metrics{
		registry: registry,

		ToolCalls: factory(prometheus.CounterOpts{
			Name: "legalmcp_tool_calls_total",
			Help: "Total tool invocations.",
		}, []string{"tool"}),
		ToolErrors: factory(prometheus.CounterOpts{
			Name: "legalmcp_tool_errors_total",
			Help: "Total tool invocations that returned an error.",
		}, []string{"tool"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "legalmcp_tool_duration_seconds",
			Help:    "Tool handler duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),

		DocumentsIngested: factory(prometheus.CounterOpts{
			Name: "legalmcp_documents_ingested_total",
			Help: "Documents ingested, by source kind.",
		}, []string{"source_kind"}),
		ChunksIngested: factory(prometheus.CounterOpts{
			Name: "legalmcp_chunks_ingested_total",
			Help: "Chunks persisted, by source kind.",
		}, []string{"source_kind"}),
		IngestFailures: factory(prometheus.CounterOpts{
			Name: "legalmcp_ingest_failures_total",
			Help: "Per-document ingestion failures, by source kind.",
		}, []string{"source_kind"}),

		EmbeddingRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "legalmcp_embedding_requests_total",
			Help: "Embedding batch requests.",
		}),
		EmbeddingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "legalmcp_embedding_failures_total",
			Help: "Embedding batch requests that failed after retries.",
		}),
		EmbeddingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "legalmcp_embedding_duration_seconds",
			Help:    "Embedding batch duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		SearchQueries: factory(prometheus.CounterOpts{
			Name: "legalmcp_search_queries_total",
			Help: "Search queries, by collection.",
		}, []string{"collection"}),
		SearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "legalmcp_search_duration_seconds",
			Help:    "Search duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection"}),
	}

	registry.MustRegister(m.ToolDuration, m.EmbeddingRequests, m.EmbeddingFailures,
		m.EmbeddingDuration, m.SearchDuration)
	return m
}

// Registry exposes the underlying registry for exporter wiring.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTool records one tool invocation.
func (m *Metrics) ObserveTool(tool string, start time.Time, err error) {
	m.ToolCalls.WithLabelValues(tool).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
	if err != nil {
		m.ToolErrors.WithLabelValues(tool).Inc()
	}
}
