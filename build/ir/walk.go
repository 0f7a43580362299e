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

package ir

import (
	"iter"

	"github.com/gx-org/meshc/base/ordered"
)

// Walk traverses a node in depth-first order.
// Children of a node are not visited if visit returns false.
func Walk(node Node, visit func(Node) bool) {
	if node == nil || !visit(node) {
		return
	}
	walkAll := func(nodes ...Node) {
		for _, n := range nodes {
			Walk(n, visit)
		}
	}
	switch nodeT := node.(type) {
	case *Module:
		for _, fn := range nodeT.Funcs {
			Walk(fn, visit)
		}
	case *Func:
		for _, v := range nodeT.Params {
			Walk(v, visit)
		}
		for _, v := range nodeT.Results {
			Walk(v, visit)
		}
		Walk(nodeT.Body, visit)
	case *Block:
		for _, stmt := range nodeT.Stmts {
			Walk(stmt, visit)
		}
	case *AssignStmt:
		walkAll(nodeT.Var, nodeT.Value)
	case *TensorWrite:
		Walk(nodeT.Tensor, visit)
		for _, index := range nodeT.Indices {
			Walk(index, visit)
		}
		Walk(nodeT.Value, visit)
	case *FieldWrite:
		walkAll(nodeT.Target, nodeT.Value)
	case *Store:
		walkAll(nodeT.Buffer, nodeT.Index, nodeT.Value)
	case *For:
		Walk(nodeT.Var, visit)
		if nbr, ok := nodeT.Domain.(*NeighborDomain); ok {
			Walk(nbr.Source, visit)
		}
		Walk(nodeT.Body, visit)
	case *VarExpr:
		Walk(nodeT.Var, visit)
	case *BinaryExpr:
		walkAll(nodeT.X, nodeT.Y)
	case *NegExpr:
		Walk(nodeT.X, visit)
	case *Call:
		for _, arg := range nodeT.Args {
			Walk(arg, visit)
		}
	case *FieldRead:
		Walk(nodeT.Target, visit)
	case *IndexedTensor:
		Walk(nodeT.Tensor, visit)
	case *IndexExpr:
		Walk(nodeT.Value, visit)
	case *TensorRead:
		Walk(nodeT.Tensor, visit)
		for _, index := range nodeT.Indices {
			Walk(index, visit)
		}
	case *Load:
		walkAll(nodeT.Buffer, nodeT.Index)
	}
}

// Vars returns all the variables referenced by a node, in order of first appearance.
func Vars(node Node) iter.Seq[*Var] {
	vars := ordered.NewMap[*Var, bool]()
	Walk(node, func(n Node) bool {
		if v, ok := n.(*Var); ok {
			vars.Store(v, true)
		}
		return true
	})
	return vars.Keys()
}

// IndexVars returns the index variables used in an expression, in order of first appearance.
func IndexVars(expr Expr) iter.Seq[*IndexVar] {
	vars := ordered.NewMap[*IndexVar, bool]()
	Walk(expr, func(n Node) bool {
		if it, ok := n.(*IndexedTensor); ok {
			for _, v := range it.IndexVars {
				vars.Store(v, true)
			}
		}
		return true
	})
	return vars.Keys()
}
