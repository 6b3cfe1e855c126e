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

// Package server assembles the engines behind the tool surface and hosts
// them on an MCP server. Transports (stdio, SSE, streamable HTTP) stay
// outside; this package exposes the assembled server and its tool table.
package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/legalmcp/legalmcp/pkg/catalog"
	"github.com/legalmcp/legalmcp/pkg/config"
	"github.com/legalmcp/legalmcp/pkg/convert"
	"github.com/legalmcp/legalmcp/pkg/embedder"
	"github.com/legalmcp/legalmcp/pkg/ingest"
	"github.com/legalmcp/legalmcp/pkg/observability"
	"github.com/legalmcp/legalmcp/pkg/query"
	"github.com/legalmcp/legalmcp/pkg/refcache"
	"github.com/legalmcp/legalmcp/pkg/renderer"
	"github.com/legalmcp/legalmcp/pkg/safepath"
	"github.com/legalmcp/legalmcp/pkg/tools"
	"github.com/legalmcp/legalmcp/pkg/vector"
)

// Name identifies the server at the protocol handshake.
const Name = "legal-mcp"

// Option adjusts the assembly.
type Option func(*Server)

// WithRenderer attaches a page renderer for the on-demand ingestion flow.
// Without one, render requests fail cleanly.
func WithRenderer(r renderer.Renderer) Option {
	return func(s *Server) { s.renderer = r }
}

// Server owns the assembled engines and the MCP host.
type Server struct {
	cfg      *config.Config
	version  string
	renderer renderer.Renderer

	mcp     *mcpserver.MCPServer
	deps    tools.Deps
	closers []func() error
}

// New builds every engine from the configuration and registers the tool
// table on a fresh MCP server.
func New(cfg *config.Config, version string, opts ...Option) (*Server, error) {
	s := &Server{cfg: cfg, version: version}
	for _, opt := range opts {
		opt(s)
	}

	resolver, err := safepath.NewResolver(cfg.Ingest.Root)
	if err != nil {
		return nil, err
	}
	slog.Info("ingestion root resolved", "root", resolver.Root())

	provider, err := embedder.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedding setup failed: %w", err)
	}

	vectorProvider, err := vector.New(cfg.Vector, cfg.Embedding.Dimension)
	if err != nil {
		return nil, fmt.Errorf("vector store setup failed: %w", err)
	}
	store := vector.NewStore(vectorProvider)
	s.closers = append(s.closers, store.Close)

	cache, err := newCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache setup failed: %w", err)
	}
	s.closers = append(s.closers, cache.Close)

	metrics := observability.New()
	converter := convert.New(resolver)
	engine, err := ingest.New(ingest.Params{
		Resolver:  resolver,
		Embedder:  provider,
		Store:     store,
		Converter: converter,
		Renderer:  s.renderer,
		Metrics:   metrics,
		Config: ingest.Config{
			Workers:           cfg.Ingest.Workers,
			MaxTextBytes:      cfg.Ingest.MaxTextBytes,
			MaxConvertedBytes: cfg.Ingest.MaxConvertedBytes,
		},
	})
	if err != nil {
		return nil, err
	}
	if s.renderer != nil {
		s.closers = append(s.closers, s.renderer.Close)
	}

	catalogService := catalog.NewService(catalog.NewDefaultRegistry(cfg.Catalog.Dir, version))
	s.closers = append(s.closers, catalogService.Close)

	s.deps = tools.Deps{
		Query:     query.New(provider, store, ingest.DefaultConfig().Chunking),
		Ingest:    engine,
		Cache:     cache,
		Catalog:   catalogService,
		Converter: converter,
		Metrics:   metrics,
	}

	s.mcp = mcpserver.NewMCPServer(Name, version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	for _, tool := range s.deps.All() {
		s.mcp.AddTool(
			mcp.NewToolWithRawSchema(tool.Name, tool.Description, tool.InputSchema),
			tool.Handler,
		)
	}
	return s, nil
}

// newCache builds the reference cache per configuration and pins the
// secrets policy: the agent can feed a secret into a computation but
// never read it.
func newCache(cfg config.CacheConfig) (*refcache.Cache, error) {
	var backend refcache.Backend
	switch cfg.Backend {
	case "redis":
		redisBackend, err := refcache.NewRedisBackend(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		backend = redisBackend
	default:
		memoryBackend, err := refcache.NewMemoryBackend(cfg.Capacity)
		if err != nil {
			return nil, err
		}
		backend = memoryBackend
	}

	cacheCfg := refcache.DefaultConfig()
	cacheCfg.DefaultTTL = time.Duration(cfg.DefaultTTLSeconds) * time.Second
	cache := refcache.New(backend, cacheCfg)
	cache.SetNamespacePolicy("secrets", refcache.AccessPolicy{
		UserPerms:  refcache.PermFull,
		AgentPerms: refcache.PermExecute,
	})
	return cache, nil
}

// Deps exposes the assembled engines (bulk ingestion runs outside the
// protocol loop).
func (s *Server) Deps() tools.Deps {
	return s.deps
}

// ServeStdio runs the protocol loop on stdin/stdout until EOF. Logging
// must already be directed away from stdout.
func (s *Server) ServeStdio() error {
	slog.Info("serving", "server", Name, "version", s.version, "transport", "stdio")
	return mcpserver.ServeStdio(s.mcp)
}

// Close releases every engine in reverse construction order.
func (s *Server) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
