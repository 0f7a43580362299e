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


package graphfile_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/meshc/build/graph"
	"github.com/gx-org/meshc/build/pathexpr"
	"github.com/gx-org/meshc/tools/pathidx/graphfile"
)

func TestReadFile(t *testing.T) {
	g, err := graphfile.ReadFile("testdata/mesh.yaml")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if diff := cmp.Diff([]string{"points", "springs"}, slices.Collect(g.Sets.Keys())); diff != "" {
		t.Errorf("unexpected sets (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"incident", "endpoints", "adjacency", "reach"}, slices.Collect(g.Paths.Keys())); diff != "" {
		t.Errorf("unexpected paths (-want +got):\n%s", diff)
	}
	springs, err := g.Set("springs")
	if err != nil {
		t.Fatal(err)
	}
	points, err := g.Set("points")
	if err != nil {
		t.Fatal(err)
	}
	if got := springs.String(); got != "springs{2}(points,points)" {
		t.Errorf("got set %s but want springs{2}(points,points)", got)
	}
	if diff := cmp.Diff([]int{0, 1, 1, 2}, springs.EndpointArray()); diff != "" {
		t.Errorf("unexpected endpoints (-want +got):\n%s", diff)
	}
	wantFields := []graph.Field{{Name: "x", DType: dtype.Float64, Components: 3}}
	if diff := cmp.Diff(wantFields, points.Fields()); diff != "" {
		t.Errorf("unexpected fields (-want +got):\n%s", diff)
	}
	if k, ok := springs.Field("k"); !ok || k.Components != 1 || k.DType != dtype.Float32 {
		t.Errorf("got field %v, %t but want a scalar float32 field", k, ok)
	}

	adjacency, err := g.Path("adjacency")
	if err != nil {
		t.Fatal(err)
	}
	u, v, e := pathexpr.NewVar("u"), pathexpr.NewVar("v"), pathexpr.NewVar("e")
	want := pathexpr.Bind(
		pathexpr.NewAnd(pathexpr.NewVE(u, e), pathexpr.NewEV(e, v), e),
		map[string]*graph.Set{"u": points, "v": points, "e": springs},
	)
	if !pathexpr.Equal(adjacency, want) {
		t.Errorf("got path %s but want %s", adjacency, want)
	}
	reach, err := g.Path("reach")
	if err != nil {
		t.Fatal(err)
	}
	if got := len(reach.Quantified()); got != 1 {
		t.Errorf("got %d quantified variables in %s but want 1", got, reach)
	}
	if _, err := g.Path("none"); err == nil {
		t.Errorf("expected an error for an undeclared path")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown key",
			src:  "set: []",
			want: "field set not found",
		},
		{
			name: "unknown endpoint set",
			src:  "edges: [{name: e, endpoints: [p], elements: [[0]]}]",
			want: `set "p" not declared`,
		},
		{
			name: "endpoint out of range",
			src:  "sets: [{name: p, size: 1}]\nedges: [{name: e, endpoints: [p], elements: [[1]]}]",
			want: "out of range",
		},
		{
			name: "duplicate set",
			src:  "sets: [{name: p, size: 1}, {name: p, size: 2}]",
			want: "declared twice",
		},
		{
			name: "unknown dtype",
			src:  "sets: [{name: p, size: 1, fields: [{name: f, dtype: complex}]}]",
			want: "unknown data type",
		},
		{
			name: "variable bound to an unknown set",
			src:  "vars: {u: p}",
			want: "variable u",
		},
		{
			name: "undeclared variable",
			src:  "sets: [{name: p, size: 1}]\nvars: {u: p}\npaths:\n  l: {ve: [u, e]}",
			want: "variable e is not declared",
		},
		{
			name: "two kinds",
			src:  "paths:\n  l: {ve: [u, e], ev: [e, u]}",
			want: "exactly one of",
		},
		{
			name: "link arity",
			src:  "paths:\n  l: {ev: [e]}",
			want: "ev link needs",
		},
		{
			name: "operand count",
			src:  "paths:\n  l: {and: [{ve: [u, e]}]}",
			want: "and needs 2 operands",
		},
		{
			name: "quantified link",
			src:  "paths:\n  l: {exists: e, ve: [u, e]}",
			want: "links cannot be quantified",
		},
		{
			name: "paths sequence",
			src:  "paths: [a, b]",
			want: "paths must be a mapping",
		},
	}
	for _, test := range tests {
		_, err := graphfile.Load(strings.NewReader(test.src))
		if err == nil {
			t.Errorf("%s: expected an error", test.name)
			continue
		}
		if !strings.Contains(err.Error(), test.want) {
			t.Errorf("%s: got error %q but want an error containing %q", test.name, err, test.want)
		}
	}
}
