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

package pathexpr

import (
	"fmt"
	"iter"

	"github.com/gx-org/meshc/build/graph"
)

func walkVars(e Expr, yield func(Var) bool) bool {
	switch eT := e.(type) {
	case *Link:
		return yield(eT.edge) && yield(eT.vertex)
	case *And:
		return walkVars(eT.lhs, yield) && walkVars(eT.rhs, yield)
	case *Or:
		return walkVars(eT.lhs, yield) && walkVars(eT.rhs, yield)
	}
	return true
}

// Vars iterates over all the variables of an expression, free or quantified,
// in order of appearance. A variable appearing more than once is yielded
// every time.
func Vars(e Expr) iter.Seq[Var] {
	return func(yield func(Var) bool) {
		walkVars(e, yield)
	}
}

// IsBound returns true if every variable of the expression ranges over a set.
func IsBound(e Expr) bool {
	for v := range Vars(e) {
		if !v.Bound() {
			return false
		}
	}
	return true
}

// Binding returns the set a variable of the expression is bound to.
// It returns nil if the variable is not in the expression or is not bound.
func Binding(e Expr, v Var) *graph.Set {
	for ev := range Vars(e) {
		if ev.Name == v.Name {
			return ev.Set
		}
	}
	return nil
}

// Bind returns a new expression where variables are bound to the given sets.
// Variables absent from the map keep their current binding.
func Bind(e Expr, sets map[string]*graph.Set) Expr {
	bind := func(v Var) Var {
		if set, ok := sets[v.Name]; ok {
			v.Set = set
		}
		return v
	}
	bindAll := func(vars []Var) []Var {
		bound := make([]Var, len(vars))
		for i, v := range vars {
			bound[i] = bind(v)
		}
		return bound
	}
	switch eT := e.(type) {
	case *Link:
		return &Link{typ: eT.typ, edge: bind(eT.edge), vertex: bind(eT.vertex)}
	case *And:
		return NewAnd(Bind(eT.lhs, sets), Bind(eT.rhs, sets), bindAll(eT.quantified)...)
	case *Or:
		return NewOr(Bind(eT.lhs, sets), Bind(eT.rhs, sets), bindAll(eT.quantified)...)
	}
	return e
}

// Equal returns true if two expressions have the same structure, variables and bindings.
func Equal(a, b Expr) bool {
	switch aT := a.(type) {
	case *Link:
		bT, ok := b.(*Link)
		return ok && aT.typ == bT.typ && aT.edge == bT.edge && aT.vertex == bT.vertex
	case *And:
		bT, ok := b.(*And)
		return ok && aT.binary.equal(&bT.binary)
	case *Or:
		bT, ok := b.(*Or)
		return ok && aT.binary.equal(&bT.binary)
	}
	return false
}

func (b *binary) equal(o *binary) bool {
	if len(b.quantified) != len(o.quantified) {
		return false
	}
	for i, q := range b.quantified {
		if q != o.quantified[i] {
			return false
		}
	}
	return Equal(b.lhs, o.lhs) && Equal(b.rhs, o.rhs)
}

// Location is the position of a variable in the endpoints of an expression.
type Location struct {
	Expr     Expr
	Endpoint int
}

// Locations returns, for every free variable of the given expressions,
// where the variable appears in their endpoints.
func Locations(exprs ...Expr) map[string][]Location {
	locs := make(map[string][]Location)
	for _, e := range exprs {
		for ep, v := range e.Endpoints() {
			locs[v.Name] = append(locs[v.Name], Location{Expr: e, Endpoint: ep})
		}
	}
	return locs
}

// Location returns a string representation of a location.
func (l Location) String() string {
	return fmt.Sprintf("%s@%d", l.Expr, l.Endpoint)
}
