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

package interp

import (
	"math"

	"github.com/gx-org/meshc/build/ir"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type context struct {
	itp *Interpreter
}

func (ctx *context) evalStmt(fr *frame, stmt ir.Stmt) error {
	switch stmtT := stmt.(type) {
	case *ir.AssignStmt:
		val, err := ctx.evalExpr(fr, stmtT.Value)
		if err != nil {
			return err
		}
		fr.assign(stmtT.Var, val)
		return nil
	case *ir.Store:
		return ctx.evalStore(fr, stmtT)
	case *ir.FieldWrite:
		return ctx.evalFieldWrite(fr, stmtT)
	case *ir.For:
		return ctx.evalFor(fr, stmtT)
	case *ir.Block:
		for _, s := range stmtT.Stmts {
			if err := ctx.evalStmt(fr, s); err != nil {
				return err
			}
		}
		return nil
	case *ir.TensorWrite:
		return errors.Errorf("tensor write %s must be lowered before evaluation", ir.String(stmt))
	}
	return errors.Errorf("statement type %T not supported", stmt)
}

func (ctx *context) evalStore(fr *frame, store *ir.Store) error {
	buf, err := ctx.evalTensor(fr, store.Buffer)
	if err != nil {
		return err
	}
	index, err := ctx.evalScalar(fr, store.Index)
	if err != nil {
		return err
	}
	val, err := ctx.evalScalar(fr, store.Value)
	if err != nil {
		return err
	}
	if err := buf.SetAt(int(index), val); err != nil {
		return errors.WithMessagef(err, "cannot store in %s", ir.String(store.Buffer))
	}
	return nil
}

func (ctx *context) evalFieldWrite(fr *frame, write *ir.FieldWrite) error {
	target, err := ctx.evalExpr(fr, write.Target)
	if err != nil {
		return err
	}
	sv, ok := target.(*SetValue)
	if !ok {
		return errors.Errorf("cannot write field %s of %s: only set fields can be written", write.Field, ir.String(write.Target))
	}
	dst, ok := sv.Fields[write.Field]
	if !ok {
		return errors.Errorf("set %s has no field %s", sv.Set.Name(), write.Field)
	}
	src, err := ctx.evalTensor(fr, write.Value)
	if err != nil {
		return err
	}
	if src.Size() != dst.Size() {
		return errors.Errorf("cannot write %d values in field %s of %d components", src.Size(), write.Field, dst.Size())
	}
	for i := range src.Size() {
		val, _ := src.At(i)
		if err := dst.SetAt(i, val); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *context) evalFor(fr *frame, loop *ir.For) error {
	loopFrame := newFrame(fr)
	run := func(i int) error {
		loopFrame.define(loop.Var, float64(i))
		return ctx.evalStmt(loopFrame, loop.Body)
	}
	switch domT := loop.Domain.(type) {
	case ir.IndexDomain:
		for i := range domT.Size() {
			if err := run(i); err != nil {
				return err
			}
		}
		return nil
	case *ir.NeighborDomain:
		src, err := ctx.evalScalar(fr, &ir.VarExpr{Var: domT.Source})
		if err != nil {
			return err
		}
		pi, err := ctx.itp.indices.BuildSegmented(domT.Path, domT.SourceEndpoint)
		if err != nil {
			return err
		}
		elem := int(src)
		if elem < 0 || elem >= pi.NumElements() {
			return errors.Errorf("element %d out of range [0,%d) of %s", elem, pi.NumElements(), domT)
		}
		ctx.itp.log.Debug("neighbor loop",
			zap.String("var", loop.Var.Name),
			zap.Int("source", elem),
			zap.Int("neighbors", pi.NumNeighborsOf(elem)))
		for nbr := range pi.Neighbors(elem) {
			if err := run(nbr); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.Errorf("loop domain %T not supported", loop.Domain)
}

func (ctx *context) evalTensor(fr *frame, x ir.Expr) (*Tensor, error) {
	val, err := ctx.evalExpr(fr, x)
	if err != nil {
		return nil, err
	}
	tensor, ok := val.(*Tensor)
	if !ok {
		return nil, errors.Errorf("%s is not a tensor: got %T", ir.String(x), val)
	}
	return tensor, nil
}

func (ctx *context) evalScalar(fr *frame, x ir.Expr) (float64, error) {
	val, err := ctx.evalExpr(fr, x)
	if err != nil {
		return 0, err
	}
	scalar, ok := val.(float64)
	if !ok {
		return 0, errors.Errorf("%s is not a scalar: got %T", ir.String(x), val)
	}
	return scalar, nil
}

func (ctx *context) evalExpr(fr *frame, x ir.Expr) (any, error) {
	switch xT := x.(type) {
	case *ir.VarExpr:
		val, ok := fr.find(xT.Var)
		if !ok {
			return nil, errors.Errorf("variable %s used before being assigned", xT.Var.Name)
		}
		return val, nil
	case *ir.Literal:
		return xT.Value, nil
	case *ir.BinaryExpr:
		return ctx.evalBinary(fr, xT)
	case *ir.NegExpr:
		val, err := ctx.evalScalar(fr, xT.X)
		if err != nil {
			return nil, err
		}
		return -val, nil
	case *ir.Call:
		return ctx.evalCall(fr, xT)
	case *ir.Load:
		buf, err := ctx.evalTensor(fr, xT.Buffer)
		if err != nil {
			return nil, err
		}
		index, err := ctx.evalScalar(fr, xT.Index)
		if err != nil {
			return nil, err
		}
		val, err := buf.At(int(index))
		if err != nil {
			return nil, errors.WithMessagef(err, "cannot load from %s", ir.String(xT.Buffer))
		}
		return val, nil
	case *ir.FieldRead:
		target, err := ctx.evalExpr(fr, xT.Target)
		if err != nil {
			return nil, err
		}
		sv, ok := target.(*SetValue)
		if !ok {
			return nil, errors.Errorf("cannot read field %s of %s: only set fields can be read", xT.Field, ir.String(xT.Target))
		}
		field, ok := sv.Fields[xT.Field]
		if !ok {
			return nil, errors.Errorf("set %s has no field %s", sv.Set.Name(), xT.Field)
		}
		return field, nil
	case *ir.TensorRead, *ir.IndexExpr, *ir.IndexedTensor:
		return nil, errors.Errorf("expression %s must be lowered before evaluation", ir.String(x))
	}
	return nil, errors.Errorf("expression type %T not supported", x)
}

func isInteger(x ir.Expr) bool {
	typ, ok := x.Type().(*ir.TensorType)
	return ok && typ != nil && !ir.IsFloat(typ.Component)
}

func (ctx *context) evalBinary(fr *frame, x *ir.BinaryExpr) (any, error) {
	lhs, err := ctx.evalScalar(fr, x.X)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.evalScalar(fr, x.Y)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case ir.Add:
		return lhs + rhs, nil
	case ir.Sub:
		return lhs - rhs, nil
	case ir.Mul:
		return lhs * rhs, nil
	case ir.Div:
		if isInteger(x.X) && isInteger(x.Y) {
			if rhs == 0 {
				return nil, errors.Errorf("integer division by zero in %s", ir.String(x))
			}
			return math.Trunc(lhs / rhs), nil
		}
		return lhs / rhs, nil
	}
	return nil, errors.Errorf("operator %s not supported", x.Op)
}

var intrinsics = map[ir.Intrinsic]func(args []float64) float64{
	ir.Sin:   func(args []float64) float64 { return math.Sin(args[0]) },
	ir.Cos:   func(args []float64) float64 { return math.Cos(args[0]) },
	ir.Sqrt:  func(args []float64) float64 { return math.Sqrt(args[0]) },
	ir.Log:   func(args []float64) float64 { return math.Log(args[0]) },
	ir.Exp:   func(args []float64) float64 { return math.Exp(args[0]) },
	ir.Atan2: func(args []float64) float64 { return math.Atan2(args[0], args[1]) },
	ir.Pow:   func(args []float64) float64 { return math.Pow(args[0], args[1]) },
}

func (ctx *context) evalCall(fr *frame, call *ir.Call) (any, error) {
	fn, ok := intrinsics[call.Func]
	if !ok {
		return nil, errors.Errorf("intrinsic %s not supported", call.Func)
	}
	if want := call.Func.NumArgs(); len(call.Args) != want {
		return nil, errors.Errorf("%s requires %d arguments but got %d", call.Func, want, len(call.Args))
	}
	args := make([]float64, len(call.Args))
	for i, arg := range call.Args {
		var err error
		if args[i], err = ctx.evalScalar(fr, arg); err != nil {
			return nil, err
		}
	}
	return fn(args), nil
}
