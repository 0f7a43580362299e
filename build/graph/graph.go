// Copyright 2025 Google LLC
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

// Package graph models the sets of a simulation graph.
//
// A set is a collection of elements identified by dense ids starting at 0.
// An edge set is a set where every element (an edge) references a fixed
// number of elements (its endpoints) of other sets. The number of endpoints
// is the cardinality of the edge set.
package graph

import (
	"fmt"
	"iter"
	"strings"

	"github.com/gx-org/backend/dtype"
	"github.com/pkg/errors"
)

type (
	// Field is a value declared for every element of a set.
	Field struct {
		Name string
		// DType is the scalar type of the field components.
		DType dtype.DataType
		// Components is the number of scalars per element (1 for a scalar field).
		Components int
	}

	// Set of elements. Edge sets also store the endpoints of their elements.
	Set struct {
		name   string
		size   int
		fields []Field

		endpointSets []*Set
		// endpoints of edge e are stored in endpoints[e*card:(e+1)*card].
		endpoints []int
	}
)

// NewSet returns a set of size elements.
func NewSet(name string, size int, fields ...Field) *Set {
	return &Set{name: name, size: size, fields: fields}
}

// NewEdgeSet returns an edge set. The cardinality of the set is the number of
// endpoint sets and every edge must reference exactly one element in each of
// these sets.
func NewEdgeSet(name string, endpointSets []*Set, edges [][]int, fields ...Field) (*Set, error) {
	card := len(endpointSets)
	if card == 0 {
		return nil, errors.Errorf("edge set %s has no endpoint set", name)
	}
	s := &Set{
		name:         name,
		size:         len(edges),
		fields:       fields,
		endpointSets: endpointSets,
		endpoints:    make([]int, 0, len(edges)*card),
	}
	for e, edge := range edges {
		if len(edge) != card {
			return nil, errors.Errorf("edge %d of %s has %d endpoints but the set has a cardinality of %d", e, name, len(edge), card)
		}
		for slot, ep := range edge {
			epSet := endpointSets[slot]
			if ep < 0 || ep >= epSet.Size() {
				return nil, errors.Errorf("endpoint %d of edge %d in %s references element %d out of range [0,%d) of %s", slot, e, name, ep, epSet.Size(), epSet.Name())
			}
		}
		s.endpoints = append(s.endpoints, edge...)
	}
	return s, nil
}

// Name of the set.
func (s *Set) Name() string { return s.name }

// Size returns the number of elements in the set.
func (s *Set) Size() int { return s.size }

// Cardinality returns the number of endpoints of every edge.
// The cardinality of a set that is not an edge set is 0.
func (s *Set) Cardinality() int { return len(s.endpointSets) }

// IsEdgeSet returns true if elements of the set have endpoints.
func (s *Set) IsEdgeSet() bool { return s.Cardinality() > 0 }

// EndpointSets returns the sets referenced by the edges, one per endpoint slot.
func (s *Set) EndpointSets() []*Set { return s.endpointSets }

// IsHomogeneous returns true if all the endpoints of the set reference the same set.
// Endpoint ids of a homogeneous set share the same id space.
func (s *Set) IsHomogeneous() bool {
	for _, ep := range s.endpointSets {
		if ep != s.endpointSets[0] {
			return false
		}
	}
	return true
}

// Fields declared for every element of the set.
func (s *Set) Fields() []Field { return s.fields }

// Field returns a field given its name.
func (s *Set) Field(name string) (Field, bool) {
	for _, field := range s.fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Elements iterates over the element ids of the set.
func (s *Set) Elements() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := range s.size {
			if !yield(i) {
				return
			}
		}
	}
}

// Endpoint returns the element referenced by an edge at a given endpoint slot.
func (s *Set) Endpoint(edge, slot int) int {
	return s.endpoints[edge*s.Cardinality()+slot]
}

// Endpoints iterates over the endpoints of an edge in slot order.
func (s *Set) Endpoints(edge int) iter.Seq[int] {
	card := s.Cardinality()
	return func(yield func(int) bool) {
		for _, ep := range s.endpoints[edge*card : (edge+1)*card] {
			if !yield(ep) {
				return
			}
		}
	}
}

// EndpointArray returns the flattened endpoints of all the edges.
// The returned slice must not be modified.
func (s *Set) EndpointArray() []int {
	return s.endpoints
}

// String representation of the set.
func (s *Set) String() string {
	if !s.IsEdgeSet() {
		return fmt.Sprintf("%s{%d}", s.name, s.size)
	}
	names := make([]string, len(s.endpointSets))
	for i, ep := range s.endpointSets {
		names[i] = ep.Name()
	}
	return fmt.Sprintf("%s{%d}(%s)", s.name, s.size, strings.Join(names, ","))
}
