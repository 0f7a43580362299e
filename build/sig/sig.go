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

// Package sig builds the sparse iteration graph of an index expression.
//
// The graph has one vertex per index variable of the expression and one
// edge per sparse operand. Sparse operands are matrices defined over a
// path expression: the variables addressing a sparse operand cannot be
// iterated independently because only the pairs connected by the path
// expression are stored.
package sig

import (
	"iter"
	"strings"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/meshc/base/ordered"
	"github.com/gx-org/meshc/build/ir"
	"github.com/gx-org/meshc/build/pathexpr"
	"github.com/gx-org/meshc/build/usedef"
)

type (
	// Vertex of the graph.
	Vertex struct {
		IndexVar *ir.IndexVar
		Edges    []*Edge
	}

	// Edge of the graph. An edge connects the index variables
	// addressing a sparse operand.
	Edge struct {
		Operand *ir.IndexedTensor
		Path    pathexpr.Expr
		// Endpoints are the vertices of the index variables addressing the operand,
		// in the order of the operand dimensions.
		Endpoints []*Vertex
	}

	// SIG is the sparse iteration graph of an index expression.
	SIG struct {
		vertices *ordered.Map[*ir.IndexVar, *Vertex]
		edges    []*Edge
	}

	// Step of a traversal of the graph.
	Step struct {
		Vertex *Vertex
		// Previous is the edge through which the vertex has been reached.
		// It is nil for unconstrained vertices.
		Previous *Edge
		// From is the vertex at the other end of the previous edge.
		From *Vertex
	}
)

// New builds the graph of an index expression.
// Vertices are inserted in the order of the result variables
// followed by the order of first use in the value of the expression.
func New(ie *ir.IndexExpr, ud usedef.UseDef) *SIG {
	g := &SIG{vertices: ordered.NewMap[*ir.IndexVar, *Vertex]()}
	for _, iv := range ie.ResultVars {
		g.vertex(iv)
	}
	ir.Walk(ie.Value, func(n ir.Node) bool {
		it, ok := n.(*ir.IndexedTensor)
		if !ok {
			return true
		}
		endpoints := make([]*Vertex, len(it.IndexVars))
		for i, iv := range it.IndexVars {
			endpoints[i] = g.vertex(iv)
		}
		pe, sparse := usedef.SparseOperand(ud, it)
		if !sparse {
			return true
		}
		edge := &Edge{Operand: it, Path: pe, Endpoints: endpoints}
		g.edges = append(g.edges, edge)
		for _, v := range endpoints {
			v.Edges = append(v.Edges, edge)
		}
		return true
	})
	return g
}

func (g *SIG) vertex(iv *ir.IndexVar) *Vertex {
	v, _ := g.vertices.LoadOrStore(iv, &Vertex{IndexVar: iv})
	return v
}

// Vertices returns the vertices in insertion order.
func (g *SIG) Vertices() iter.Seq[*Vertex] {
	return g.vertices.Values()
}

// NumVertices returns the number of vertices.
func (g *SIG) NumVertices() int {
	return g.vertices.Size()
}

// Vertex returns the vertex of an index variable.
func (g *SIG) Vertex(iv *ir.IndexVar) (*Vertex, bool) {
	return g.vertices.Load(iv)
}

// Edges returns the edges of the graph.
func (g *SIG) Edges() []*Edge {
	return g.edges
}

// EndpointOf returns the position of a vertex in the endpoints of the edge or -1.
func (e *Edge) EndpointOf(v *Vertex) int {
	for i, ep := range e.Endpoints {
		if ep == v {
			return i
		}
	}
	return -1
}

// Order returns the vertices from the outermost loop to the innermost loop.
// The graph is traversed depth-first, starting from the vertices in insertion
// order. A vertex reached through an edge is constrained by that edge.
func (g *SIG) Order() []Step {
	visitedV := make(map[*Vertex]bool)
	visitedE := make(map[*Edge]bool)
	var steps []Step
	var visit func(v *Vertex, previous *Edge, from *Vertex)
	visit = func(v *Vertex, previous *Edge, from *Vertex) {
		visitedV[v] = true
		steps = append(steps, Step{Vertex: v, Previous: previous, From: from})
		for _, e := range v.Edges {
			if visitedE[e] {
				continue
			}
			visitedE[e] = true
			for _, next := range e.Endpoints {
				if !visitedV[next] {
					visit(next, e, v)
				}
			}
		}
	}
	for v := range g.Vertices() {
		if !visitedV[v] {
			visit(v, nil, nil)
		}
	}
	return steps
}

// String representation of the graph.
func (g *SIG) String() string {
	var b strings.Builder
	b.WriteString("SIG:")
	for v := range g.Vertices() {
		b.WriteString("\n  " + v.IndexVar.String())
	}
	for _, e := range g.edges {
		names := make([]string, len(e.Endpoints))
		for i, ep := range e.Endpoints {
			names[i] = ep.IndexVar.Name
		}
		b.WriteString("\n  " + ir.String(e.Operand.Tensor) + "(" + strings.Join(names, ",") + "): " + e.Path.String())
	}
	return b.String()
}

// LoopVars maps the index variables of a graph to loop variables.
type LoopVars struct {
	vars *ordered.Map[*ir.IndexVar, *ir.Var]
}

// NewLoopVars creates one integer loop variable per vertex of the graph.
// Loop variables are named after their index variable.
func NewLoopVars(g *SIG) *LoopVars {
	lvs := &LoopVars{vars: ordered.NewMap[*ir.IndexVar, *ir.Var]()}
	for v := range g.Vertices() {
		lvs.vars.Store(v.IndexVar, ir.NewVar(v.IndexVar.Name, ir.Scalar(dtype.Int64)))
	}
	return lvs
}

// Var returns the loop variable of an index variable.
func (lvs *LoopVars) Var(iv *ir.IndexVar) (*ir.Var, bool) {
	return lvs.vars.Load(iv)
}
