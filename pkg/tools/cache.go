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

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/legalmcp/legalmcp/pkg/refcache"
)

// Cache namespaces of the generic cache tools. The secrets namespace pins
// its policy at startup: the agent may feed a secret into a computation
// but can never read it back.
const (
	namespaceSecrets = "secrets"
	namespaceDemo    = "demo"
)

// secretPolicy is the entry-level policy of every stored secret.
var secretPolicy = refcache.AccessPolicy{
	UserPerms:  refcache.PermFull,
	AgentPerms: refcache.PermExecute,
}

type getCachedResultArgs struct {
	RefID    string `json:"ref_id" jsonschema:"required,description=Reference handle returned by a cached tool"`
	Page     int    `json:"page,omitempty" jsonschema:"minimum=1,description=1-based page of a list-shaped value"`
	PageSize int    `json:"page_size,omitempty" jsonschema:"minimum=1,description=Items per page"`
	MaxSize  int    `json:"max_size,omitempty" jsonschema:"minimum=1,description=Character cap on string-shaped values"`
}

func (d Deps) getCachedResult() Tool {
	return Tool{
		Name: "get_cached_result",
		Description: "Retrieve a cached tool result by reference, in full or " +
			"one page at a time.",
		InputSchema: schemaFor[getCachedResultArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args getCachedResultArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}

			resolved, err := d.Cache.Get(ctx, refcache.GetRequest{
				RefID:    args.RefID,
				Actor:    refcache.ActorAgent,
				Page:     args.Page,
				PageSize: args.PageSize,
				MaxChars: args.MaxSize,
			})
			if err != nil {
				return errorResult(err)
			}
			return jsonResult(resolved)
		},
	}
}

type storeSecretArgs struct {
	Name  string  `json:"name" jsonschema:"required,description=Secret name; addresses the entry within the secrets namespace"`
	Value float64 `json:"value" jsonschema:"required,description=Numeric secret value"`
}

func (d Deps) storeSecret() Tool {
	return Tool{
		Name: "store_secret",
		Description: "Store a numeric value that the agent may use in " +
			"computations but never read back. Returns only the reference.",
		InputSchema: schemaFor[storeSecretArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args storeSecretArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}

			policy := secretPolicy
			ref, err := d.Cache.Put(ctx, refcache.PutRequest{
				Namespace: namespaceSecrets,
				Key:       args.Name,
				Value:     args.Value,
				Policy:    &policy,
				Strategy:  refcache.StrategyTruncate,
				Actor:     refcache.ActorUser,
			})
			if err != nil {
				return errorResult(err)
			}
			// The envelope of a secret carries the handle only.
			return jsonResult(map[string]any{
				"ref_id":    ref.RefID,
				"namespace": ref.Namespace,
			})
		},
	}
}

type computeWithSecretArgs struct {
	SecretRef  string  `json:"secret_ref" jsonschema:"required,description=Reference of a stored secret"`
	Multiplier float64 `json:"multiplier" jsonschema:"required,description=Factor applied to the secret value"`
}

func (d Deps) computeWithSecret() Tool {
	return Tool{
		Name: "compute_with_secret",
		Description: "Multiply a stored secret by a factor. The secret is " +
			"resolved server-side; only the product is returned.",
		InputSchema: schemaFor[computeWithSecretArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args computeWithSecretArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}

			value, err := d.Cache.Resolve(ctx, args.SecretRef, refcache.ActorAgent)
			if err != nil {
				return errorResult(err)
			}
			secret, ok := value.(float64)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("%s does not hold a numeric value", args.SecretRef)), nil
			}
			return jsonResult(map[string]any{
				"result": secret * args.Multiplier,
			})
		},
	}
}

type generateItemsArgs struct {
	Count int `json:"count" jsonschema:"required,minimum=1,maximum=100000,description=Number of items to generate"`
}

func (d Deps) generateItems() Tool {
	return Tool{
		Name: "generate_items",
		Description: "Generate a synthetic item list to exercise the cache " +
			"envelope: the result is cached and a sampled preview returned.",
		InputSchema: schemaFor[generateItemsArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args generateItemsArgs
			if err := req.BindArguments(&args); err != nil {
				return errorResult(err)
			}
			if args.Count < 1 {
				return mcp.NewToolResultError("count must be at least 1"), nil
			}

			items := make([]any, args.Count)
			for i := range items {
				items[i] = map[string]any{
					"index": i,
					"name":  fmt.Sprintf("item-%04d", i),
				}
			}
			return d.cachedResult(ctx, namespaceDemo, items, refcache.StrategySample)
		},
	}
}

type healthCheckArgs struct{}

func (d Deps) healthCheck() Tool {
	return Tool{
		Name:        "health_check",
		Description: "Report server liveness and cache entry count.",
		InputSchema: schemaFor[healthCheckArgs](),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			entries, err := d.Cache.Len(ctx)
			if err != nil {
				return errorResult(err)
			}
			return jsonResult(map[string]any{
				"status":        "ok",
				"cache_entries": entries,
			})
		},
	}
}
