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

// Package usedef resolves the definitions of tensor variables.
//
// Sparse matrices are assembled over a path expression: a matrix
// variable defined that way stores one value per pair of elements
// connected by the path expression.
package usedef

import (
	"github.com/gx-org/meshc/build/ir"
	"github.com/gx-org/meshc/build/pathexpr"
)

// UseDef returns the definitions of variables.
type UseDef interface {
	// PathExpr returns the path expression a sparse tensor variable is defined over.
	PathExpr(v *ir.Var) (pathexpr.Expr, bool)
}

// Map is a use-def analysis filled by its caller.
type Map struct {
	paths map[*ir.Var]pathexpr.Expr
}

var _ UseDef = (*Map)(nil)

// NewMap returns an empty use-def map.
func NewMap() *Map {
	return &Map{paths: make(map[*ir.Var]pathexpr.Expr)}
}

// BindPath records that a sparse tensor variable is defined over a path expression.
func (m *Map) BindPath(v *ir.Var, pe pathexpr.Expr) *Map {
	m.paths[v] = pe
	return m
}

// PathExpr returns the path expression a variable is defined over.
func (m *Map) PathExpr(v *ir.Var) (pathexpr.Expr, bool) {
	pe, ok := m.paths[v]
	return pe, ok
}

// TensorVar returns the variable read by a tensor expression.
// It returns false if the expression is not a variable reference.
func TensorVar(x ir.Expr) (*ir.Var, bool) {
	ref, ok := x.(*ir.VarExpr)
	if !ok {
		return nil, false
	}
	return ref.Var, true
}

// SparseOperand returns the path expression of a sparse tensor operand,
// that is a matrix variable addressed by two index variables and defined
// over a path expression.
func SparseOperand(ud UseDef, it *ir.IndexedTensor) (pathexpr.Expr, bool) {
	if len(it.IndexVars) != 2 {
		return nil, false
	}
	v, ok := TensorVar(it.Tensor)
	if !ok {
		return nil, false
	}
	return ud.PathExpr(v)
}
