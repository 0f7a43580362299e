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

package lower

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/meshc/build/fmterr"
	"github.com/gx-org/meshc/build/ir"
)

// TensorAccesses replaces symbolic tensor reads and writes by loads and
// stores into flat buffers. Matrices are stored densely in row-major order.
func TensorAccesses(fn *ir.Func) (*ir.Func, error) {
	body, err := accessStmt(fn.Body)
	if err != nil {
		return nil, err
	}
	return fn.WithBody(body.(*ir.Block)), nil
}

// AccessStmt lowers the tensor accesses of a statement.
func AccessStmt(stmt ir.Stmt) (ir.Stmt, error) {
	return accessStmt(stmt)
}

// AccessExpr lowers the tensor accesses of an expression.
func AccessExpr(x ir.Expr) (ir.Expr, error) {
	return accessExpr(x)
}

func accessStmt(stmt ir.Stmt) (ir.Stmt, error) {
	switch stmtT := stmt.(type) {
	case *ir.AssignStmt:
		value, err := accessExpr(stmtT.Value)
		if err != nil {
			return nil, err
		}
		return &ir.AssignStmt{Var: stmtT.Var, Value: value}, nil
	case *ir.TensorWrite:
		return lowerWrite(stmtT)
	case *ir.FieldWrite:
		exprs, err := accessExprs(stmtT.Target, stmtT.Value)
		if err != nil {
			return nil, err
		}
		return &ir.FieldWrite{Target: exprs[0], Field: stmtT.Field, Value: exprs[1]}, nil
	case *ir.Store:
		exprs, err := accessExprs(stmtT.Buffer, stmtT.Index, stmtT.Value)
		if err != nil {
			return nil, err
		}
		return &ir.Store{Buffer: exprs[0], Index: exprs[1], Value: exprs[2]}, nil
	case *ir.For:
		body, err := accessStmt(stmtT.Body)
		if err != nil {
			return nil, err
		}
		return &ir.For{Var: stmtT.Var, Domain: stmtT.Domain, Body: body}, nil
	case *ir.Block:
		stmts := make([]ir.Stmt, len(stmtT.Stmts))
		for i, s := range stmtT.Stmts {
			var err error
			if stmts[i], err = accessStmt(s); err != nil {
				return nil, err
			}
		}
		return &ir.Block{Stmts: stmts}, nil
	}
	return nil, fmterr.Internalf("statement type %T not supported", stmt)
}

func accessExprs(exprs ...ir.Expr) ([]ir.Expr, error) {
	lowered := make([]ir.Expr, len(exprs))
	for i, x := range exprs {
		var err error
		if lowered[i], err = accessExpr(x); err != nil {
			return nil, err
		}
	}
	return lowered, nil
}

func accessExpr(x ir.Expr) (ir.Expr, error) {
	switch xT := x.(type) {
	case *ir.TensorRead:
		return lowerRead(xT)
	case *ir.BinaryExpr:
		exprs, err := accessExprs(xT.X, xT.Y)
		if err != nil {
			return nil, err
		}
		return &ir.BinaryExpr{Op: xT.Op, X: exprs[0], Y: exprs[1]}, nil
	case *ir.NegExpr:
		operand, err := accessExpr(xT.X)
		if err != nil {
			return nil, err
		}
		return &ir.NegExpr{X: operand}, nil
	case *ir.Call:
		args, err := accessExprs(xT.Args...)
		if err != nil {
			return nil, err
		}
		return &ir.Call{Func: xT.Func, Args: args}, nil
	case *ir.FieldRead:
		target, err := accessExpr(xT.Target)
		if err != nil {
			return nil, err
		}
		return &ir.FieldRead{Target: target, Field: xT.Field, Typ: xT.Typ}, nil
	case *ir.Load:
		exprs, err := accessExprs(xT.Buffer, xT.Index)
		if err != nil {
			return nil, err
		}
		return &ir.Load{Buffer: exprs[0], Index: exprs[1]}, nil
	case *ir.VarExpr, *ir.Literal:
		return x, nil
	case *ir.IndexExpr, *ir.IndexedTensor:
		return nil, fmterr.Internalf("index expression %s must be lowered before tensor accesses", ir.String(x))
	}
	return nil, fmterr.Internalf("expression %s of type %T not supported", ir.String(x), x)
}

func lowerRead(read *ir.TensorRead) (ir.Expr, error) {
	exprs, err := accessExprs(append([]ir.Expr{read.Tensor}, read.Indices...)...)
	if err != nil {
		return nil, err
	}
	index, err := flatIndex(exprs[0], exprs[1:])
	if err != nil {
		return nil, err
	}
	return &ir.Load{Buffer: exprs[0], Index: index}, nil
}

func lowerWrite(write *ir.TensorWrite) (ir.Stmt, error) {
	exprs, err := accessExprs(append([]ir.Expr{write.Tensor, write.Value}, write.Indices...)...)
	if err != nil {
		return nil, err
	}
	index, err := flatIndex(exprs[0], exprs[2:])
	if err != nil {
		return nil, err
	}
	return &ir.Store{Buffer: exprs[0], Index: index, Value: exprs[1]}, nil
}

// flatIndex computes the position of a tensor component in its buffer.
func flatIndex(tensor ir.Expr, indices []ir.Expr) (ir.Expr, error) {
	typ, ok := tensor.Type().(*ir.TensorType)
	if !ok || typ == nil {
		return nil, fmterr.Internalf("%s is not a tensor", ir.String(tensor))
	}
	if typ.Order() != len(indices) {
		return nil, fmterr.Internalf("tensor %s of order %d accessed with %d indices", ir.String(tensor), typ.Order(), len(indices))
	}
	switch typ.Order() {
	case 1:
		return indices[0], nil
	case 2:
		dim1 := typ.Dims[1]
		if !dim1.IsRange() {
			return nil, fmterr.Unsupported("access to %s: second dimension %s is not a single range", ir.String(tensor), dim1)
		}
		i, j := indices[0], indices[1]
		d1 := &ir.Literal{DType: indexDType(i), Value: float64(dim1.Size())}
		return &ir.BinaryExpr{
			Op: ir.Add,
			X:  &ir.BinaryExpr{Op: ir.Mul, X: i, Y: d1},
			Y:  j,
		}, nil
	}
	return nil, fmterr.Unsupported("access to %s: tensors of order %d are not supported", ir.String(tensor), typ.Order())
}

func indexDType(index ir.Expr) dtype.DataType {
	if typ, ok := index.Type().(*ir.TensorType); ok && typ != nil {
		return typ.Component
	}
	return dtype.Int64
}
