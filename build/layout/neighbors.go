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


package layout

import (
	"math"

	"github.com/gx-org/meshc/build/fmterr"
	"github.com/gx-org/meshc/build/graph"
	"github.com/gx-org/meshc/build/pathexpr"
	"github.com/gx-org/meshc/build/pathindex"
)

// NeighborIndex stores, for every vertex of a homogeneous edge set,
// the vertices sharing at least one edge with it, the vertex included.
// The neighbors of vertex v are ColIdx[RowStart[v]:RowStart[v+1]].
type NeighborIndex struct {
	Edges    *graph.Set
	RowStart []int32
	ColIdx   []int32
}

// VertexVertex returns the path expression linking two vertices
// sharing an edge of a homogeneous edge set.
func VertexVertex(edges *graph.Set) (pathexpr.Expr, error) {
	if !edges.IsEdgeSet() || !edges.IsHomogeneous() {
		return nil, fmterr.Unsupported("neighbor index of %s: edge set is not homogeneous", edges)
	}
	vertices := edges.EndpointSets()[0]
	u, v, e := pathexpr.NewVar("u"), pathexpr.NewVar("v"), pathexpr.NewVar("e")
	return pathexpr.Bind(
		pathexpr.NewAnd(pathexpr.NewVE(u, e), pathexpr.NewEV(e, v), e),
		map[string]*graph.Set{"u": vertices, "v": vertices, "e": edges},
	), nil
}

// NewNeighborIndex computes the neighbor index of an edge set.
func NewNeighborIndex(src pathindex.Source, edges *graph.Set) (*NeighborIndex, error) {
	pe, err := VertexVertex(edges)
	if err != nil {
		return nil, err
	}
	pi, err := src.BuildSegmented(pe, 0)
	if err != nil {
		return nil, err
	}
	if pi.NumNeighbors() > math.MaxInt32 {
		return nil, fmterr.Unsupported("neighbor index of %s: %d neighbors overflow 32-bit indices", edges.Name(), pi.NumNeighbors())
	}
	ni := &NeighborIndex{
		Edges:    edges,
		RowStart: make([]int32, 0, pi.NumElements()+1),
		ColIdx:   make([]int32, 0, pi.NumNeighbors()),
	}
	for elem := range pi.Elements() {
		ni.RowStart = append(ni.RowStart, int32(len(ni.ColIdx)))
		for nb := range pi.Neighbors(elem) {
			ni.ColIdx = append(ni.ColIdx, int32(nb))
		}
	}
	ni.RowStart = append(ni.RowStart, int32(len(ni.ColIdx)))
	return ni, nil
}

// Endpoints returns the endpoints of an edge set as 32-bit indices.
func Endpoints(edges *graph.Set) []int32 {
	eps := edges.EndpointArray()
	out := make([]int32, len(eps))
	for i, ep := range eps {
		out[i] = int32(ep)
	}
	return out
}
