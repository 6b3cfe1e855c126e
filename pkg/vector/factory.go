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

package vector

import (
	"fmt"

	"github.com/legalmcp/legalmcp/pkg/config"
)

// New builds the configured provider.
func New(cfg config.VectorConfig, dimension int) (Provider, error) {
	switch cfg.Provider {
	case "chromem", "":
		return NewChromemProvider(ChromemConfig{
			PersistPath: cfg.Path,
			Compress:    cfg.Compress,
			Dimension:   dimension,
		})
	case "qdrant":
		return NewQdrantProvider(QdrantConfig{
			Host:      cfg.QdrantHost,
			Port:      cfg.QdrantPort,
			APIKey:    cfg.QdrantAPIKey,
			UseTLS:    cfg.QdrantUseTLS,
			Dimension: dimension,
		})
	default:
		return nil, fmt.Errorf("unknown vector provider: %s", cfg.Provider)
	}
}
