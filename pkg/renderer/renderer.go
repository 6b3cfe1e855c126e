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

// Package renderer fetches single documents from script-rendered sites
// through a headless browser. It renders exactly one document per call;
// bulk crawling is out of bounds.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrRendererUnavailable means no browser could be reached.
var ErrRendererUnavailable = errors.New("renderer unavailable")

// Document is one rendered page.
type Document struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Renderer fetches one rendered document at a time.
type Renderer interface {
	Render(ctx context.Context, url string) (*Document, error)
	Close() error
}

// Config controls the browser connection.
type Config struct {
	// ControlURL connects to an existing debugger; empty launches a
	// headless browser locally.
	ControlURL string `yaml:"control_url"`

	// NavigationTimeout bounds one page load.
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
}

// Rod renders pages through a shared headless browser, connected lazily
// on first use.
type Rod struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser
}

// NewRod creates a renderer; the browser starts on the first Render call.
func NewRod(cfg Config) *Rod {
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	return &Rod{cfg: cfg}
}

func (r *Rod) ensureBrowser(ctx context.Context) (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	controlURL := r.cfg.ControlURL
	if controlURL == "" {
		url, err := launcher.New().Headless(true).Launch()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot launch browser: %v", ErrRendererUnavailable, err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: cannot connect to browser: %v", ErrRendererUnavailable, err)
	}
	r.browser = browser
	return browser, nil
}

// Render loads one URL, waits for the page to settle, and extracts its
// title and visible text.
func (r *Rod) Render(ctx context.Context, url string) (*Document, error) {
	browser, err := r.ensureBrowser(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open page: %v", ErrRendererUnavailable, err)
	}
	defer func() { _ = page.Close() }()

	page = page.Context(ctx).Timeout(r.cfg.NavigationTimeout)
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page load of %s failed: %w", url, err)
	}

	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("cannot inspect %s: %w", url, err)
	}

	body, err := page.Element("body")
	if err != nil {
		return nil, fmt.Errorf("no body on %s: %w", url, err)
	}
	text, err := body.Text()
	if err != nil {
		return nil, fmt.Errorf("cannot extract text from %s: %w", url, err)
	}

	return &Document{URL: url, Title: info.Title, Text: text}, nil
}

// Close shuts the browser down.
func (r *Rod) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}

var _ Renderer = (*Rod)(nil)
