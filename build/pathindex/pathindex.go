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

// Package pathindex evaluates path expressions over concrete sets.
//
// A path index stores, for every element of a source set, the elements
// of a sink set it is connected to through a path expression. Path
// indices drive the bounds of sparse loops and the assembly of sparse
// matrices.
package pathindex

import (
	"iter"
	"strconv"
	"strings"

	"github.com/gx-org/meshc/base/stringseq"
	"github.com/gx-org/meshc/build/graph"
	"github.com/pkg/errors"
)

type (
	// PathIndex is a sparse adjacency structure.
	// Elements are identified by ids in [0, NumElements()).
	PathIndex interface {
		// NumElements returns the number of source elements.
		NumElements() int
		// NumNeighbors returns the total number of neighbors of all elements.
		NumNeighbors() int
		// NumNeighborsOf returns the number of neighbors of an element.
		NumNeighborsOf(elem int) int
		// Neighbors iterates over the neighbors of an element.
		Neighbors(elem int) iter.Seq[int]
		// Elements iterates over the source elements.
		Elements() iter.Seq[int]
		// String representation of the index.
		String() string
	}

	// EndpointIndex relates the edges of an edge set to their endpoints.
	// It reads the endpoints of the edge set directly and does not
	// allocate any storage.
	// Neighbors are yielded in endpoint slot order.
	EndpointIndex struct {
		edges *graph.Set
	}

	// SegmentedIndex stores neighbors in a flattened array.
	// The neighbors of element i are
	//
	//	neighbors[neighborStart[i]:neighborStart[i+1]]
	//
	// sorted in ascending order without duplicates.
	SegmentedIndex struct {
		neighborStart []int
		neighbors     []int
	}
)

var (
	_ PathIndex = (*EndpointIndex)(nil)
	_ PathIndex = (*SegmentedIndex)(nil)
)

func elements(n int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := range n {
			if !yield(i) {
				return
			}
		}
	}
}

// NewEndpointIndex returns an index over the endpoints of an edge set.
// The edge set must be homogeneous.
func NewEndpointIndex(edges *graph.Set) (*EndpointIndex, error) {
	if !edges.IsEdgeSet() {
		return nil, errors.Errorf("%s is not an edge set", edges.Name())
	}
	if !edges.IsHomogeneous() {
		return nil, errors.Errorf("edge set %s must be homogeneous because otherwise there are gaps between endpoint ids", edges)
	}
	return &EndpointIndex{edges: edges}, nil
}

// EdgeSet returns the edge set the index reads.
func (ei *EndpointIndex) EdgeSet() *graph.Set { return ei.edges }

// NumElements returns the number of edges.
func (ei *EndpointIndex) NumElements() int { return ei.edges.Size() }

// NumNeighbors returns the number of endpoints of all edges.
func (ei *EndpointIndex) NumNeighbors() int { return ei.NumElements() * ei.edges.Cardinality() }

// NumNeighborsOf returns the cardinality of the edge set.
func (ei *EndpointIndex) NumNeighborsOf(int) int { return ei.edges.Cardinality() }

// Neighbors iterates over the endpoints of an edge.
func (ei *EndpointIndex) Neighbors(elem int) iter.Seq[int] {
	return ei.edges.Endpoints(elem)
}

// Elements iterates over the edges.
func (ei *EndpointIndex) Elements() iter.Seq[int] { return elements(ei.NumElements()) }

// String representation of the index.
func (ei *EndpointIndex) String() string {
	return listString("EndpointPathIndex", ei)
}

// NewSegmented returns a segmented index given its two arrays.
// The index takes the ownership of the arrays.
func NewSegmented(neighborStart, neighbors []int) (*SegmentedIndex, error) {
	if len(neighborStart) == 0 {
		return nil, errors.Errorf("neighbor start array is empty: it needs at least one element")
	}
	if neighborStart[0] != 0 {
		return nil, errors.Errorf("neighbor start array starts at %d instead of 0", neighborStart[0])
	}
	for i := 1; i < len(neighborStart); i++ {
		start, end := neighborStart[i-1], neighborStart[i]
		if end < start {
			return nil, errors.Errorf("neighbor start array decreases at element %d: %d < %d", i-1, end, start)
		}
		if end > len(neighbors) {
			return nil, errors.Errorf("neighbors of element %d end at %d but there are %d neighbors", i-1, end, len(neighbors))
		}
		for n := start + 1; n < end; n++ {
			if neighbors[n] <= neighbors[n-1] {
				return nil, errors.Errorf("neighbors of element %d are not sorted or not unique", i-1)
			}
		}
	}
	if last := neighborStart[len(neighborStart)-1]; last != len(neighbors) {
		return nil, errors.Errorf("neighbor start array ends at %d but there are %d neighbors", last, len(neighbors))
	}
	return &SegmentedIndex{neighborStart: neighborStart, neighbors: neighbors}, nil
}

// NumElements returns the number of source elements.
func (si *SegmentedIndex) NumElements() int { return len(si.neighborStart) - 1 }

// NumNeighbors returns the total number of neighbors.
func (si *SegmentedIndex) NumNeighbors() int { return si.neighborStart[si.NumElements()] }

// NumNeighborsOf returns the number of neighbors of an element.
func (si *SegmentedIndex) NumNeighborsOf(elem int) int {
	return si.neighborStart[elem+1] - si.neighborStart[elem]
}

// Neighbors iterates over the neighbors of an element in ascending order.
func (si *SegmentedIndex) Neighbors(elem int) iter.Seq[int] {
	segment := si.neighbors[si.neighborStart[elem]:si.neighborStart[elem+1]]
	return func(yield func(int) bool) {
		for _, nbr := range segment {
			if !yield(nbr) {
				return
			}
		}
	}
}

// Elements iterates over the source elements.
func (si *SegmentedIndex) Elements() iter.Seq[int] { return elements(si.NumElements()) }

// NeighborStart returns the offsets of the neighbors of each element.
// The returned slice must not be modified.
func (si *SegmentedIndex) NeighborStart() []int { return si.neighborStart }

// NeighborArray returns the flattened neighbors.
// The returned slice must not be modified.
func (si *SegmentedIndex) NeighborArray() []int { return si.neighbors }

// String representation of the index.
func (si *SegmentedIndex) String() string {
	var b strings.Builder
	b.WriteString("SegmentedPathIndex:\n  ")
	b.WriteString(stringseq.JoinInts(func(yield func(int) bool) {
		for _, s := range si.neighborStart {
			if !yield(s) {
				return
			}
		}
	}, " "))
	b.WriteString("\n  ")
	b.WriteString(stringseq.JoinInts(func(yield func(int) bool) {
		for _, n := range si.neighbors {
			if !yield(n) {
				return
			}
		}
	}, " "))
	return b.String()
}

func listString(name string, pi PathIndex) string {
	var b strings.Builder
	b.WriteString(name + ":")
	for elem := range pi.Elements() {
		b.WriteString("\n  ")
		b.WriteString(strconv.Itoa(elem))
		b.WriteString(": ")
		b.WriteString(stringseq.JoinInts(pi.Neighbors(elem), " "))
	}
	return b.String()
}

// Neighborhoods returns the neighbors of every element of an index as slices.
func Neighborhoods(pi PathIndex) [][]int {
	all := make([][]int, pi.NumElements())
	for elem := range pi.Elements() {
		all[elem] = []int{}
		for nbr := range pi.Neighbors(elem) {
			all[elem] = append(all[elem], nbr)
		}
	}
	return all
}
