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
	"sort"
	"strings"
)

// Expr is a metadata filter expression: either a bare equality predicate or
// an explicit conjunction of them.
//
// The distinction is load-bearing. A single condition is emitted as a bare
// predicate; two or more MUST be wrapped in an explicit conjunction node
// before serialisation. Backends exist that treat an unwrapped list of
// conditions as a disjunction, which silently widens the result set, so
// normalisation happens here once rather than in every serialiser.
type Expr interface {
	Predicates() []Predicate
	String() string
}

// Predicate is a single scalar equality condition.
type Predicate struct {
	Field string
	Value any
}

// Predicates returns the predicate itself.
func (p Predicate) Predicates() []Predicate {
	return []Predicate{p}
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s = %v", p.Field, p.Value)
}

// Conjunction is an explicit AND over two or more predicates.
type Conjunction struct {
	Terms []Predicate
}

// Predicates returns the conjunction's terms.
func (c *Conjunction) Predicates() []Predicate {
	return c.Terms
}

func (c *Conjunction) String() string {
	parts := make([]string, len(c.Terms))
	for i, t := range c.Terms {
		parts[i] = t.String()
	}
	return "AND(" + strings.Join(parts, ", ") + ")"
}

// Eq builds a single equality predicate.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Value: value}
}

// And normalises a predicate list into the canonical expression shape:
// nil for no predicates, the bare predicate for one, an explicit
// conjunction for two or more.
func And(preds ...Predicate) Expr {
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return &Conjunction{Terms: preds}
	}
}

// HasField reports whether the expression constrains the given field.
func HasField(e Expr, field string) bool {
	if e == nil {
		return false
	}
	for _, p := range e.Predicates() {
		if p.Field == field {
			return true
		}
	}
	return false
}

// FieldValue returns the value the expression pins field to, if any.
func FieldValue(e Expr, field string) (any, bool) {
	if e == nil {
		return nil, false
	}
	for _, p := range e.Predicates() {
		if p.Field == field {
			return p.Value, true
		}
	}
	return nil, false
}

// toStringMap flattens the expression for backends whose native filter is a
// field-to-value map with implicit AND. Keys are sorted for deterministic
// serialisation in logs and tests.
func toStringMap(e Expr) map[string]string {
	if e == nil {
		return nil
	}
	preds := e.Predicates()
	out := make(map[string]string, len(preds))
	for _, p := range preds {
		out[p.Field] = fmt.Sprint(p.Value)
	}
	return out
}

// sortedFields lists the constrained fields in lexicographic order.
func sortedFields(e Expr) []string {
	if e == nil {
		return nil
	}
	preds := e.Predicates()
	fields := make([]string, 0, len(preds))
	for _, p := range preds {
		fields = append(fields, p.Field)
	}
	sort.Strings(fields)
	return fields
}
