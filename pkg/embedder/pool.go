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

package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/legalmcp/legalmcp/internal/httpclient"
)

// PoolConfig configures the HTTP embedding pool.
type PoolConfig struct {
	// Endpoints are the base URLs of embedding replicas, tried in
	// round-robin order.
	Endpoints []string `yaml:"endpoints"`

	// Model is the logical model identifier recorded on chunks.
	Model string `yaml:"model"`

	// Dimension of the vectors the backend produces.
	Dimension int `yaml:"dimension"`

	// MaxBatchSize splits larger caller batches into backend requests.
	MaxBatchSize int `yaml:"max_batch_size"`

	// Timeout per backend request.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries per endpoint before failing over to the next one.
	MaxRetries int `yaml:"max_retries"`

	// Cooldown is how long a failing endpoint is skipped.
	Cooldown time.Duration `yaml:"cooldown"`
}

// Pool embeds text over a pool of HTTP replicas with round-robin selection
// and failover. Replicas speak the text-embeddings-inference wire shape:
// POST /embed {"inputs": [...], "truncate": true} returning [[float32]].
type Pool struct {
	cfg    PoolConfig
	client *http.Client

	// mu guards next and unhealthyUntil. This is the only shared mutable
	// state; requests themselves run outside the lock.
	mu             sync.Mutex
	next           int
	unhealthyUntil []time.Time

	now func() time.Time
}

// NewPool creates the HTTP embedding pool.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("embedding pool requires at least one endpoint")
	}
	if cfg.Dimension < 1 {
		return nil, fmt.Errorf("embedding dimension must be >= 1")
	}
	if cfg.MaxBatchSize < 1 {
		cfg.MaxBatchSize = 32
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 30 * time.Second
	}

	return &Pool{
		cfg:            cfg,
		client:         &http.Client{Timeout: cfg.Timeout},
		unhealthyUntil: make([]time.Time, len(cfg.Endpoints)),
		now:            time.Now,
	}, nil
}

type embedRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// EmbedBatch splits texts into backend-sized requests and embeds them in
// input order.
func (p *Pool) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.cfg.MaxBatchSize {
		end := start + p.cfg.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := p.embedOnce(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// embedOnce sends one backend request, walking healthy endpoints with
// bounded retries per endpoint.
func (p *Pool) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for range p.cfg.Endpoints {
		idx, ok := p.pickHealthy()
		if !ok {
			break
		}
		endpoint := p.cfg.Endpoints[idx]

		for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
			vectors, retryAfter, err := p.request(ctx, endpoint, texts)
			if err == nil {
				return vectors, nil
			}
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			var retryable *httpclient.RetryableError
			if !errors.As(err, &retryable) {
				break
			}
			delay := httpclient.Backoff(attempt, 200*time.Millisecond, 5*time.Second)
			if retryAfter > 0 {
				delay = retryAfter
			}
			if attempt < p.cfg.MaxRetries-1 {
				if err := httpclient.SleepWithContext(ctx, delay); err != nil {
					return nil, err
				}
			}
		}

		p.markUnhealthy(idx)
		slog.Warn("embedding endpoint marked unhealthy",
			"endpoint", endpoint,
			"cooldown", p.cfg.Cooldown,
			"error", lastErr)
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, lastErr)
	}
	return nil, ErrEmbeddingUnavailable
}

func (p *Pool) request(ctx context.Context, endpoint string, texts []string) ([][]float32, time.Duration, error) {
	body, err := json.Marshal(embedRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, 0, err
	}

	url := strings.TrimRight(endpoint, "/") + "/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, &httpclient.RetryableError{Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retryAfter := httpclient.ParseRetryAfter(resp.Header)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, retryAfter, &httpclient.RetryableError{
				StatusCode: resp.StatusCode,
				Message:    string(respBody),
				RetryAfter: retryAfter,
			}
		}
		return nil, 0, fmt.Errorf("embedding backend returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, 0, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, 0, fmt.Errorf("embedding backend returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != p.cfg.Dimension {
			return nil, 0, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), p.cfg.Dimension)
		}
	}
	return vectors, 0, nil
}

// pickHealthy returns the next endpoint index in round-robin order,
// skipping endpoints in cooldown.
func (p *Pool) pickHealthy() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for i := 0; i < len(p.cfg.Endpoints); i++ {
		idx := (p.next + i) % len(p.cfg.Endpoints)
		if now.After(p.unhealthyUntil[idx]) {
			p.next = (idx + 1) % len(p.cfg.Endpoints)
			return idx, true
		}
	}
	return 0, false
}

func (p *Pool) markUnhealthy(idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unhealthyUntil[idx] = p.now().Add(p.cfg.Cooldown)
}

// Healthy reports how many endpoints are currently in rotation.
func (p *Pool) Healthy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	n := 0
	for _, until := range p.unhealthyUntil {
		if now.After(until) {
			n++
		}
	}
	return n
}

// Dimension returns the configured vector dimension.
func (p *Pool) Dimension() int { return p.cfg.Dimension }

// Model returns the logical model identifier.
func (p *Pool) Model() string { return p.cfg.Model }

// Close releases idle connections.
func (p *Pool) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

var _ Provider = (*Pool)(nil)
