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

// Package irhelper provides helper functions to build IR programmatically.
package irhelper

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/meshc/build/graph"
	"github.com/gx-org/meshc/build/ir"
)

// Range returns the domain [0, n).
func Range(n int) ir.IndexDomain {
	return ir.Domain(ir.RangeSet(n))
}

// Set returns the domain of the elements of a graph set.
func Set(s *graph.Set) ir.IndexDomain {
	return ir.Domain(ir.ElementSet(s))
}

// Vector returns the type of a float64 vector over a domain.
func Vector(dim ir.IndexDomain) *ir.TensorType {
	return ir.Tensor(dtype.Float64, dim)
}

// Matrix returns the type of a float64 matrix.
func Matrix(rows, cols ir.IndexDomain) *ir.TensorType {
	return ir.Tensor(dtype.Float64, rows, cols)
}

// Float64 returns the float64 scalar type.
func Float64() *ir.TensorType {
	return ir.Scalar(dtype.Float64)
}

// Var returns a variable.
func Var(name string, typ ir.Type) *ir.Var {
	return ir.NewVar(name, typ)
}

// Ref returns an expression reading a variable.
func Ref(v *ir.Var) *ir.VarExpr {
	return &ir.VarExpr{Var: v}
}

// Float returns a float64 literal.
func Float(val float64) *ir.Literal {
	return &ir.Literal{DType: dtype.Float64, Value: val}
}

// Int returns an int64 literal.
func Int(val int) *ir.Literal {
	return &ir.Literal{DType: dtype.Int64, Value: float64(val)}
}

// Add returns x + y.
func Add(x, y ir.Expr) *ir.BinaryExpr {
	return &ir.BinaryExpr{Op: ir.Add, X: x, Y: y}
}

// Sub returns x - y.
func Sub(x, y ir.Expr) *ir.BinaryExpr {
	return &ir.BinaryExpr{Op: ir.Sub, X: x, Y: y}
}

// Mul returns x * y.
func Mul(x, y ir.Expr) *ir.BinaryExpr {
	return &ir.BinaryExpr{Op: ir.Mul, X: x, Y: y}
}

// Div returns x / y.
func Div(x, y ir.Expr) *ir.BinaryExpr {
	return &ir.BinaryExpr{Op: ir.Div, X: x, Y: y}
}

// Call returns a call to an intrinsic.
func Call(f ir.Intrinsic, args ...ir.Expr) *ir.Call {
	return &ir.Call{Func: f, Args: args}
}

// Indexed returns a variable tensor operand addressed by index variables.
func Indexed(tensor *ir.Var, vars ...*ir.IndexVar) *ir.IndexedTensor {
	return &ir.IndexedTensor{Tensor: Ref(tensor), IndexVars: vars}
}

// IndexExpr returns an index expression.
func IndexExpr(result []*ir.IndexVar, value ir.Expr) *ir.IndexExpr {
	return &ir.IndexExpr{ResultVars: result, Value: value}
}

// Free returns free index variables over the same domain.
func Free(dom ir.IndexDomain, names ...string) []*ir.IndexVar {
	vars := make([]*ir.IndexVar, len(names))
	for i, name := range names {
		vars[i] = ir.NewFree(name, dom)
	}
	return vars
}

// Assign returns an assignment to a variable.
func Assign(v *ir.Var, value ir.Expr) *ir.AssignStmt {
	return &ir.AssignStmt{Var: v, Value: value}
}

// Read returns a symbolic tensor read.
func Read(tensor *ir.Var, indices ...ir.Expr) *ir.TensorRead {
	return &ir.TensorRead{Tensor: Ref(tensor), Indices: indices}
}

// Write returns a symbolic tensor write.
func Write(tensor *ir.Var, value ir.Expr, indices ...ir.Expr) *ir.TensorWrite {
	return &ir.TensorWrite{Tensor: Ref(tensor), Indices: indices, Value: value}
}

// Block returns a block of statements.
func Block(stmts ...ir.Stmt) *ir.Block {
	return &ir.Block{Stmts: stmts}
}

// Func returns a function.
func Func(name string, params, results []*ir.Var, stmts ...ir.Stmt) *ir.Func {
	return &ir.Func{
		Name:    name,
		Params:  params,
		Results: results,
		Body:    Block(stmts...),
	}
}

// Vars returns a slice of variables.
func Vars(vars ...*ir.Var) []*ir.Var {
	return vars
}
