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

// Command legalmcp runs the legal document retrieval server.
//
// Usage:
//
//	legalmcp serve
//	legalmcp serve --with-renderer
//	legalmcp ingest-corpus --dir ./gesetze
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/legalmcp/legalmcp/pkg/config"
	"github.com/legalmcp/legalmcp/pkg/ingest"
	"github.com/legalmcp/legalmcp/pkg/logger"
	"github.com/legalmcp/legalmcp/pkg/renderer"
	"github.com/legalmcp/legalmcp/pkg/server"
)

// version is set at build time via -ldflags.
var version = "dev"

// CLI defines the command-line interface.
type CLI struct {
	Version      VersionCmd      `cmd:"" help:"Show version information."`
	Serve        ServeCmd        `cmd:"" default:"1" help:"Serve MCP over stdio."`
	IngestCorpus IngestCorpusCmd `cmd:"" name:"ingest-corpus" help:"Bulk-ingest a local law corpus HTML tree."`

	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile  string `help:"Log file path (empty = stderr)."`
	LogJSON  bool   `name:"log-json" help:"Emit JSON logs."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	v := version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.Main.Version != "(devel)" && info.Main.Version != "" {
				v = info.Main.Version
			}
		}
	}
	fmt.Printf("%s version %s\n", server.Name, v)
	return nil
}

// ServeCmd serves the tool surface over stdio.
type ServeCmd struct {
	WithRenderer bool   `name:"with-renderer" help:"Launch a headless browser for on-demand page rendering."`
	BrowserURL   string `name:"browser-url" help:"Attach to an existing browser instead of launching one." placeholder:"WS_URL"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var opts []server.Option
	if c.WithRenderer || c.BrowserURL != "" {
		opts = append(opts, server.WithRenderer(renderer.NewRod(renderer.Config{
			ControlURL: c.BrowserURL,
		})))
	}

	s, err := server.New(cfg, version, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Error("shutdown incomplete", "error", err)
		}
	}()

	return s.ServeStdio()
}

// IngestCorpusCmd bulk-ingests a local corpus tree outside the protocol
// loop, so a fresh index can be built before the first client connects.
type IngestCorpusCmd struct {
	Dir          string `required:"" help:"Directory holding one subdirectory per law, each with norm HTML files." type:"path"`
	Jurisdiction string `help:"Jurisdiction recorded on every chunk." default:"de"`
}

func (c *IngestCorpusCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	s, err := server.New(cfg, version)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := s.Deps().Ingest.IngestCorpus(ctx, ingest.CorpusRequest{
		Dir:          c.Dir,
		Jurisdiction: c.Jurisdiction,
	})
	if err != nil {
		return err
	}

	slog.Info("corpus ingestion finished",
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"chunks_added", result.ChunksAdded,
	)
	for _, doc := range result.Documents {
		if doc.Error != "" {
			slog.Warn("document failed", "document_id", doc.DocumentID, "source", doc.SourceName, "error", doc.Error)
		}
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d documents failed", result.Failed)
	}
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("legalmcp"),
		kong.Description("Legal document retrieval MCP server for German law."),
		kong.UsageOnError(),
	)

	cleanup, err := logger.Configure(logger.Options{
		Level: cli.LogLevel,
		File:  cli.LogFile,
		JSON:  cli.LogJSON,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := ctx.Run(&cli); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
