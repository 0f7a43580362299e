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

// Package pathexpr defines path expressions.
//
// A path expression is a boolean relation between variables ranging over
// the elements of graph sets. The relation describes how elements are
// connected through the bipartite graph formed by edge sets and the sets
// referenced by their endpoints. For example:
//
//	exists e: ve(u, e) and ev(e, v)
//
// relates two vertices u and v sharing an edge e.
//
// Path expressions are immutable. Variables are identified by their names
// within an expression.
package pathexpr

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gx-org/meshc/build/graph"
)

type (
	// Var is an endpoint variable of a path expression.
	// A variable is bound when it ranges over a concrete set.
	Var struct {
		Name string
		Set  *graph.Set
	}

	// Expr is a path expression.
	Expr interface {
		// Endpoints returns the free variables of the expression in order.
		Endpoints() []Var
		// Quantified returns the existentially quantified variables of the expression.
		Quantified() []Var
		// String representation of the expression.
		String() string

		pathExpr()
	}

	// LinkType is the direction of a link.
	LinkType int

	// Link relates an edge to the vertices it references.
	Link struct {
		typ    LinkType
		edge   Var
		vertex Var
	}

	binary struct {
		lhs, rhs   Expr
		quantified []Var
		free       []Var
	}

	// And is the conjunction of two path expressions.
	And struct{ binary }

	// Or is the disjunction of two path expressions.
	Or struct{ binary }
)

const (
	// EV links an edge to its endpoints.
	EV LinkType = iota
	// VE links a vertex to the edges referencing it.
	VE
)

var (
	_ Expr = (*Link)(nil)
	_ Expr = (*And)(nil)
	_ Expr = (*Or)(nil)
)

// NewVar returns an unbound variable.
func NewVar(name string) Var {
	return Var{Name: name}
}

// Bound returns true if the variable ranges over a set.
func (v Var) Bound() bool {
	return v.Set != nil
}

// String representation of the variable.
func (v Var) String() string {
	if v.Set == nil {
		return v.Name
	}
	return v.Name + ":" + v.Set.Name()
}

// String representation of a link type.
func (t LinkType) String() string {
	switch t {
	case EV:
		return "ev"
	case VE:
		return "ve"
	}
	return "invalid"
}

// NewEV returns a link from an edge to its endpoints.
func NewEV(edge, vertex Var) *Link {
	return &Link{typ: EV, edge: edge, vertex: vertex}
}

// NewVE returns a link from a vertex to the edges referencing it.
func NewVE(vertex, edge Var) *Link {
	return &Link{typ: VE, edge: edge, vertex: vertex}
}

func (*Link) pathExpr() {}

// Type returns the direction of the link.
func (l *Link) Type() LinkType { return l.typ }

// Edge returns the edge variable of the link.
func (l *Link) Edge() Var { return l.edge }

// Vertex returns the vertex variable of the link.
func (l *Link) Vertex() Var { return l.vertex }

// EdgeBinding returns the set the edge variable is bound to.
func (l *Link) EdgeBinding() *graph.Set { return l.edge.Set }

// VertexBinding returns the set the vertex variable is bound to.
func (l *Link) VertexBinding() *graph.Set { return l.vertex.Set }

// Endpoints returns the variables of the link in the link direction.
func (l *Link) Endpoints() []Var {
	if l.typ == EV {
		return []Var{l.edge, l.vertex}
	}
	return []Var{l.vertex, l.edge}
}

// Quantified returns nil: links have no quantified variables.
func (l *Link) Quantified() []Var { return nil }

// String representation of the link.
func (l *Link) String() string {
	eps := l.Endpoints()
	return fmt.Sprintf("%s(%s, %s)", l.typ, eps[0], eps[1])
}

func newBinary(lhs, rhs Expr, quantified []Var) binary {
	b := binary{lhs: lhs, rhs: rhs, quantified: slices.Clone(quantified)}
	for _, v := range append(lhs.Endpoints(), rhs.Endpoints()...) {
		if indexOf(b.quantified, v.Name) >= 0 || indexOf(b.free, v.Name) >= 0 {
			continue
		}
		b.free = append(b.free, v)
	}
	return b
}

// NewAnd returns the conjunction of two expressions, optionally
// quantified over some variables.
func NewAnd(lhs, rhs Expr, quantified ...Var) *And {
	return &And{binary: newBinary(lhs, rhs, quantified)}
}

// NewOr returns the disjunction of two expressions, optionally
// quantified over some variables.
func NewOr(lhs, rhs Expr, quantified ...Var) *Or {
	return &Or{binary: newBinary(lhs, rhs, quantified)}
}

// Lhs returns the left operand.
func (b *binary) Lhs() Expr { return b.lhs }

// Rhs returns the right operand.
func (b *binary) Rhs() Expr { return b.rhs }

// IsQuantified returns true if the expression quantifies at least one variable.
func (b *binary) IsQuantified() bool { return len(b.quantified) > 0 }

// Endpoints returns the free variables of the expression in order of appearance.
func (b *binary) Endpoints() []Var { return b.free }

// Quantified returns the quantified variables.
func (b *binary) Quantified() []Var { return b.quantified }

func (b *binary) string(op string) string {
	s := fmt.Sprintf("%s %s %s", b.lhs, op, b.rhs)
	if len(b.quantified) == 0 {
		return "(" + s + ")"
	}
	names := make([]string, len(b.quantified))
	for i, q := range b.quantified {
		names[i] = q.String()
	}
	return fmt.Sprintf("(exists %s: %s)", strings.Join(names, ", "), s)
}

func (*And) pathExpr() {}

// String representation of the conjunction.
func (a *And) String() string { return a.string("and") }

func (*Or) pathExpr() {}

// String representation of the disjunction.
func (o *Or) String() string { return o.string("or") }

func indexOf(vars []Var, name string) int {
	return slices.IndexFunc(vars, func(v Var) bool { return v.Name == name })
}

// EndpointOf returns the position of a variable in the endpoints of an expression
// or -1 if the variable is not a free variable of the expression.
func EndpointOf(e Expr, v Var) int {
	return indexOf(e.Endpoints(), v.Name)
}
