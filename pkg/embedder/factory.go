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
	"log/slog"
	"time"

	"github.com/legalmcp/legalmcp/pkg/config"
)

// New builds the embedding provider from configuration: the HTTP pool when
// endpoints are configured, otherwise the in-process fallback.
func New(cfg config.EmbeddingConfig) (Provider, error) {
	if len(cfg.Endpoints) > 0 {
		return NewPool(PoolConfig{
			Endpoints:    cfg.Endpoints,
			Model:        cfg.Model,
			Dimension:    cfg.Dimension,
			MaxBatchSize: cfg.MaxBatchSize,
			Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
			MaxRetries:   cfg.MaxRetries,
			Cooldown:     time.Duration(cfg.CooldownSeconds) * time.Second,
		})
	}
	slog.Warn("no embedding endpoints configured, using in-process fallback")
	return NewLocal(cfg.Dimension), nil
}
