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

package pathindex_test

import (
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gx-org/meshc/build/fmterr"
	"github.com/gx-org/meshc/build/graph"
	"github.com/gx-org/meshc/build/pathexpr"
	"github.com/gx-org/meshc/build/pathindex"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mesh struct {
	points  *graph.Set
	springs *graph.Set
	diag    *graph.Set
}

func newMesh(t *testing.T) mesh {
	points := graph.NewSet("points", 3)
	springs, err := graph.NewEdgeSet("springs", []*graph.Set{points, points}, [][]int{{0, 1}, {1, 2}})
	require.NoError(t, err)
	diag, err := graph.NewEdgeSet("diag", []*graph.Set{points, points}, [][]int{{0, 2}})
	require.NoError(t, err)
	return mesh{points: points, springs: springs, diag: diag}
}

var (
	u = pathexpr.NewVar("u")
	v = pathexpr.NewVar("v")
	e = pathexpr.NewVar("e")
	f = pathexpr.NewVar("f")
)

func bind(expr pathexpr.Expr, sets map[string]*graph.Set) pathexpr.Expr {
	return pathexpr.Bind(expr, sets)
}

func (m mesh) vertexVertex(edge pathexpr.Var, edges *graph.Set) pathexpr.Expr {
	return bind(
		pathexpr.NewAnd(pathexpr.NewVE(u, edge), pathexpr.NewEV(edge, v), edge),
		map[string]*graph.Set{"u": m.points, "v": m.points, edge.Name: edges},
	)
}

func checkSegmented(t *testing.T, pi pathindex.PathIndex) {
	t.Helper()
	seg, ok := pi.(*pathindex.SegmentedIndex)
	if !ok {
		return
	}
	start := seg.NeighborStart()
	require.Len(t, start, seg.NumElements()+1)
	require.Equal(t, 0, start[0])
	require.Equal(t, len(seg.NeighborArray()), start[len(start)-1])
	for i := range seg.NumElements() {
		require.LessOrEqual(t, start[i], start[i+1])
		nbrs := seg.NeighborArray()[start[i]:start[i+1]]
		require.True(t, sort.IntsAreSorted(nbrs), "neighbors of %d are not sorted: %v", i, nbrs)
	}
}

func TestBuildLinks(t *testing.T) {
	m := newMesh(t)
	sets := map[string]*graph.Set{"e": m.springs, "v": m.points}
	tests := []struct {
		expr         pathexpr.Expr
		endpoint     int
		want         [][]int
		endpointView bool
	}{
		{
			expr:     bind(pathexpr.NewVE(v, e), sets),
			endpoint: 0,
			want:     [][]int{{0}, {0, 1}, {1}},
		},
		{
			expr:         bind(pathexpr.NewEV(e, v), sets),
			endpoint:     0,
			want:         [][]int{{0, 1}, {1, 2}},
			endpointView: true,
		},
		{
			expr:     bind(pathexpr.NewEV(e, v), sets),
			endpoint: 1,
			want:     [][]int{{0}, {0, 1}, {1}},
		},
		{
			expr:         bind(pathexpr.NewVE(v, e), sets),
			endpoint:     1,
			want:         [][]int{{0, 1}, {1, 2}},
			endpointView: true,
		},
	}
	for i, test := range tests {
		b := pathindex.NewBuilder(pathindex.WithLogger(zaptest.NewLogger(t)))
		pi, err := b.BuildSegmented(test.expr, test.endpoint)
		if err != nil {
			t.Fatalf("test %d: %+v", i, err)
		}
		checkSegmented(t, pi)
		if got := pathindex.Neighborhoods(pi); !cmp.Equal(got, test.want, cmpopts.EquateEmpty()) {
			t.Errorf("test %d: %s from %d: got %v but want %v", i, test.expr, test.endpoint, got, test.want)
		}
		if _, isView := pi.(*pathindex.EndpointIndex); isView != test.endpointView {
			t.Errorf("test %d: got index of type %T", i, pi)
		}
	}
}

func TestLinkDuality(t *testing.T) {
	m := newMesh(t)
	sets := map[string]*graph.Set{"e": m.springs, "v": m.points}
	b := pathindex.NewBuilder()
	ev, err := b.BuildSegmented(bind(pathexpr.NewEV(e, v), sets), 0)
	require.NoError(t, err)
	ve, err := b.BuildSegmented(bind(pathexpr.NewVE(v, e), sets), 0)
	require.NoError(t, err)
	want := m.springs.Size() * m.springs.Cardinality()
	require.Equal(t, want, ev.NumNeighbors())
	require.Equal(t, want, ve.NumNeighbors())
	for edge := range ev.Elements() {
		for vertex := range ev.Neighbors(edge) {
			require.Contains(t, pathindex.Neighborhoods(ve)[vertex], edge)
		}
	}
}

func TestBuildVertexVertex(t *testing.T) {
	m := newMesh(t)
	tests := []struct {
		expr pathexpr.Expr
		want [][]int
	}{
		{
			expr: m.vertexVertex(e, m.springs),
			want: [][]int{{0, 1}, {0, 1, 2}, {1, 2}},
		},
		{
			expr: m.vertexVertex(f, m.diag),
			want: [][]int{{0, 2}, {}, {0, 2}},
		},
		{
			expr: pathexpr.NewAnd(m.vertexVertex(e, m.springs), m.vertexVertex(f, m.diag)),
			want: [][]int{{0}, {}, {2}},
		},
		{
			expr: pathexpr.NewOr(m.vertexVertex(e, m.springs), m.vertexVertex(f, m.diag)),
			want: [][]int{{0, 1, 2}, {0, 1, 2}, {0, 1, 2}},
		},
		{
			expr: bind(
				pathexpr.NewOr(pathexpr.NewVE(u, f), pathexpr.NewEV(f, v), f),
				map[string]*graph.Set{"u": m.points, "v": m.points, "f": m.diag},
			),
			want: [][]int{{0, 1, 2}, {0, 2}, {0, 1, 2}},
		},
	}
	for i, test := range tests {
		b := pathindex.NewBuilder()
		pi, err := b.BuildSegmented(test.expr, 0)
		if err != nil {
			t.Fatalf("test %d: %+v", i, err)
		}
		checkSegmented(t, pi)
		if got := pathindex.Neighborhoods(pi); !cmp.Equal(got, test.want, cmpopts.EquateEmpty()) {
			t.Errorf("test %d: %s: got %v but want %v", i, test.expr, got, test.want)
		}
	}
}

func TestSetAlgebra(t *testing.T) {
	m := newMesh(t)
	lhs, rhs := m.vertexVertex(e, m.springs), m.vertexVertex(f, m.diag)
	b := pathindex.NewBuilder()
	build := func(expr pathexpr.Expr) [][]int {
		pi, err := b.BuildSegmented(expr, 0)
		require.NoError(t, err)
		return pathindex.Neighborhoods(pi)
	}
	and := build(pathexpr.NewAnd(lhs, rhs))
	or := build(pathexpr.NewOr(lhs, rhs))
	lhsN, rhsN := build(lhs), build(rhs)
	for i := range m.points.Size() {
		for _, n := range and[i] {
			require.Contains(t, lhsN[i], n)
			require.Contains(t, rhsN[i], n)
		}
		for _, n := range lhsN[i] {
			require.Contains(t, or[i], n)
		}
		for _, n := range rhsN[i] {
			require.Contains(t, or[i], n)
		}
	}
	require.Equal(t, lhsN, build(pathexpr.NewAnd(lhs, lhs)))
	require.Equal(t, lhsN, build(pathexpr.NewOr(lhs, lhs)))
}

func TestMemoization(t *testing.T) {
	m := newMesh(t)
	b := pathindex.NewBuilder()
	first, err := b.BuildSegmented(m.vertexVertex(e, m.springs), 0)
	require.NoError(t, err)
	// The vertex-vertex index and the indices of its two links.
	require.Equal(t, 3, b.Len())
	second, err := b.BuildSegmented(m.vertexVertex(e, m.springs), 0)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 3, b.Len())

	other, err := b.BuildSegmented(m.vertexVertex(e, m.springs), 1)
	require.NoError(t, err)
	require.NotSame(t, first, other)
	require.Equal(t, pathindex.Neighborhoods(first), pathindex.Neighborhoods(other))
}

func TestSyncBuilder(t *testing.T) {
	m := newMesh(t)
	b := pathindex.NewSyncBuilder()
	const n = 8
	indices := make([]pathindex.PathIndex, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pi, err := b.BuildSegmented(m.vertexVertex(e, m.springs), 0)
			if err != nil {
				t.Errorf("goroutine %d: %v", i, err)
				return
			}
			indices[i] = pi
		}()
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		require.Same(t, indices[0], indices[i])
	}
	require.Equal(t, 3, b.Len())
}

func TestBuildErrors(t *testing.T) {
	m := newMesh(t)
	left, err := graph.NewEdgeSet("left", []*graph.Set{m.points, m.springs}, [][]int{{0, 1}})
	require.NoError(t, err)
	tests := []struct {
		expr        pathexpr.Expr
		endpoint    int
		internal    bool
		unsupported bool
	}{
		{
			expr:     pathexpr.NewEV(e, v),
			internal: true,
		},
		{
			expr: bind(
				pathexpr.NewAnd(pathexpr.NewVE(u, e), pathexpr.NewEV(f, v)),
				map[string]*graph.Set{"u": m.points, "v": m.points, "e": m.springs, "f": m.springs},
			),
			unsupported: true,
		},
		{
			expr: bind(
				pathexpr.NewAnd(pathexpr.NewVE(u, e), pathexpr.NewEV(f, v), e, f),
				map[string]*graph.Set{"u": m.points, "v": m.points, "e": m.springs, "f": m.springs},
			),
			unsupported: true,
		},
		{
			expr:     bind(pathexpr.NewEV(e, v), map[string]*graph.Set{"e": left, "v": m.points}),
			internal: true,
		},
		{
			expr:     bind(pathexpr.NewEV(e, v), map[string]*graph.Set{"e": m.springs, "v": m.points}),
			endpoint: 2,
			internal: true,
		},
	}
	for i, test := range tests {
		b := pathindex.NewBuilder()
		_, err := b.BuildSegmented(test.expr, test.endpoint)
		if err == nil {
			t.Errorf("test %d: expected an error for %s", i, test.expr)
			continue
		}
		if got := fmterr.IsInternal(err); got != test.internal {
			t.Errorf("test %d: IsInternal(%v) = %t but want %t", i, err, got, test.internal)
		}
		if got := fmterr.IsUnsupported(err); got != test.unsupported {
			t.Errorf("test %d: IsUnsupported(%v) = %t but want %t", i, err, got, test.unsupported)
		}
		if b.Len() != 0 {
			t.Errorf("test %d: failed builds should not be memoized", i)
		}
	}
}

func TestNewSegmented(t *testing.T) {
	tests := []struct {
		start, nbrs []int
		ok          bool
	}{
		{start: []int{0, 1, 3, 4}, nbrs: []int{0, 0, 1, 1}, ok: true},
		{start: []int{0}, ok: true},
		{start: []int{1, 2}, nbrs: []int{0, 1}},
		{start: []int{0, 2, 1}, nbrs: []int{0}},
		{start: []int{0, 2}, nbrs: []int{1, 0}},
		{start: []int{0, 2}, nbrs: []int{1, 1}},
		{start: []int{0, 1}, nbrs: []int{0, 1}},
	}
	for i, test := range tests {
		_, err := pathindex.NewSegmented(test.start, test.nbrs)
		if (err == nil) != test.ok {
			t.Errorf("test %d: NewSegmented(%v, %v) returned error %v", i, test.start, test.nbrs, err)
		}
	}
}

func TestString(t *testing.T) {
	m := newMesh(t)
	ei, err := pathindex.NewEndpointIndex(m.springs)
	require.NoError(t, err)
	require.Equal(t, "EndpointPathIndex:\n  0: 0 1\n  1: 1 2", ei.String())
}
