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
	"strings"

	"github.com/gx-org/meshc/base/uname"
	"github.com/gx-org/meshc/build/fmterr"
	"github.com/gx-org/meshc/build/ir"
	"github.com/gx-org/meshc/build/sig"
	"github.com/gx-org/meshc/build/usedef"
)

// IndexExpressions replaces the index expressions of a function by loop nests.
// Every index expression must be the value of an assignment to a variable.
func IndexExpressions(fn *ir.Func, ud usedef.UseDef) (*ir.Func, error) {
	l := newIndexLowerer(fn, ud)
	body, err := l.block(fn.Body)
	if err != nil {
		return nil, err
	}
	return fn.WithBody(body), nil
}

// IndexExpr lowers the assignment of an index expression into a loop nest.
// stmt must be an assignment to a variable of the index expression.
func IndexExpr(ie *ir.IndexExpr, stmt ir.Stmt, ud usedef.UseDef) (ir.Stmt, error) {
	assign, ok := stmt.(*ir.AssignStmt)
	if !ok || assign.Value != ie {
		return nil, fmterr.Internalf("index expression %s must be assigned to a variable before lowering", ir.String(ie))
	}
	return newIndexLowerer(stmt, ud).lower(ie, assign)
}

type indexLowerer struct {
	ud    usedef.UseDef
	names *uname.Unique
}

func newIndexLowerer(node ir.Node, ud usedef.UseDef) *indexLowerer {
	names := uname.New()
	for v := range ir.Vars(node) {
		names.Register(v.Name)
	}
	ir.Walk(node, func(n ir.Node) bool {
		if it, ok := n.(*ir.IndexedTensor); ok {
			for _, iv := range it.IndexVars {
				names.Register(iv.Name)
			}
		}
		return true
	})
	return &indexLowerer{ud: ud, names: names}
}

func (l *indexLowerer) block(b *ir.Block) (*ir.Block, error) {
	stmts := make([]ir.Stmt, len(b.Stmts))
	for i, stmt := range b.Stmts {
		var err error
		if stmts[i], err = l.stmt(stmt); err != nil {
			return nil, err
		}
	}
	return &ir.Block{Stmts: stmts}, nil
}

func (l *indexLowerer) stmt(stmt ir.Stmt) (ir.Stmt, error) {
	switch stmtT := stmt.(type) {
	case *ir.AssignStmt:
		if ie, ok := stmtT.Value.(*ir.IndexExpr); ok {
			return l.lower(ie, stmtT)
		}
		return stmt, checkNoIndexExpr(stmtT.Value)
	case *ir.TensorWrite:
		if _, ok := stmtT.Value.(*ir.IndexExpr); ok {
			return nil, fmterr.Unsupported("index expression %s written to the tensor %s", ir.String(stmtT.Value), ir.String(stmtT.Tensor))
		}
		return stmt, checkNoIndexExpr(append([]ir.Expr{stmtT.Tensor, stmtT.Value}, stmtT.Indices...)...)
	case *ir.FieldWrite:
		if _, ok := stmtT.Value.(*ir.IndexExpr); ok {
			return nil, fmterr.Unsupported("index expression %s written to the field %s", ir.String(stmtT.Value), stmtT.Field)
		}
		return stmt, checkNoIndexExpr(stmtT.Target, stmtT.Value)
	case *ir.Store:
		return stmt, checkNoIndexExpr(stmtT.Buffer, stmtT.Index, stmtT.Value)
	case *ir.For:
		body, err := l.stmt(stmtT.Body)
		if err != nil {
			return nil, err
		}
		return &ir.For{Var: stmtT.Var, Domain: stmtT.Domain, Body: body}, nil
	case *ir.Block:
		return l.block(stmtT)
	}
	return nil, fmterr.Internalf("statement type %T not supported", stmt)
}

func checkNoIndexExpr(exprs ...ir.Expr) error {
	var err error
	for _, x := range exprs {
		ir.Walk(x, func(n ir.Node) bool {
			if ie, ok := n.(*ir.IndexExpr); ok && err == nil {
				err = fmterr.Internalf("index expression %s must be assigned to a variable before lowering", ir.String(ie))
			}
			return err == nil
		})
	}
	return err
}

// lower builds the loop nest computing an index expression.
func (l *indexLowerer) lower(ie *ir.IndexExpr, assign *ir.AssignStmt) (ir.Stmt, error) {
	if err := checkNoIndexExpr(ie.Value); err != nil {
		return nil, err
	}
	typ, ok := ie.Type().(*ir.TensorType)
	if !ok {
		return nil, fmterr.Internalf("index expression %s has no tensor type", ir.String(ie))
	}
	g := sig.New(ie, l.ud)
	lvs := sig.NewLoopVars(g)
	body, err := specialize(ie, assign, lvs)
	if err != nil {
		return nil, err
	}
	steps := g.Order()
	firstReduction, err := checkOrder(steps)
	if err != nil {
		return nil, err
	}
	n := &nest{lvs: lvs, firstReduction: firstReduction}
	if firstReduction >= 0 {
		n.red = l.reduceOver(body, typ)
		body = n.red.accumulate
	}
	return n.build(steps, body)
}

// checkOrder returns the position of the outermost reduction variable or -1.
func checkOrder(steps []sig.Step) (int, error) {
	first := -1
	for i, step := range steps {
		iv := step.Vertex.IndexVar
		if iv.IsReduction() {
			if iv.Operator != ir.Sum {
				return -1, fmterr.Unsupported("%s reduction over %s: only sum reductions are supported", iv.Operator, iv.Name)
			}
			if first < 0 {
				first = i
			}
			continue
		}
		if first >= 0 {
			return -1, fmterr.Unsupported("free variable %s iterated inside the reduction over %s", iv.Name, steps[first].Vertex.IndexVar.Name)
		}
	}
	return first, nil
}

func loopVarRefs(ivs []*ir.IndexVar, lvs *sig.LoopVars) ([]ir.Expr, error) {
	refs := make([]ir.Expr, len(ivs))
	for i, iv := range ivs {
		lv, ok := lvs.Var(iv)
		if !ok {
			return nil, fmterr.Internalf("no loop variable for index variable %s", iv.Name)
		}
		refs[i] = &ir.VarExpr{Var: lv}
	}
	return refs, nil
}

// specialize rewrites the assignment of an index expression into
// the statement computing one value of the expression.
func specialize(ie *ir.IndexExpr, assign *ir.AssignStmt, lvs *sig.LoopVars) (ir.Stmt, error) {
	value, err := specializeExpr(ie.Value, lvs)
	if err != nil {
		return nil, err
	}
	if len(ie.ResultVars) == 0 {
		return &ir.AssignStmt{Var: assign.Var, Value: value}, nil
	}
	indices, err := loopVarRefs(ie.ResultVars, lvs)
	if err != nil {
		return nil, err
	}
	return &ir.TensorWrite{
		Tensor:  &ir.VarExpr{Var: assign.Var},
		Indices: indices,
		Value:   value,
	}, nil
}

func specializeExpr(x ir.Expr, lvs *sig.LoopVars) (ir.Expr, error) {
	switch xT := x.(type) {
	case *ir.IndexedTensor:
		if _, ok := xT.Tensor.(*ir.VarExpr); !ok {
			return nil, fmterr.Unsupported("operand %s: only variables can be indexed in index expressions", ir.String(xT))
		}
		if len(xT.IndexVars) == 0 {
			return xT.Tensor, nil
		}
		indices, err := loopVarRefs(xT.IndexVars, lvs)
		if err != nil {
			return nil, err
		}
		return &ir.TensorRead{Tensor: xT.Tensor, Indices: indices}, nil
	case *ir.BinaryExpr:
		lhs, err := specializeExpr(xT.X, lvs)
		if err != nil {
			return nil, err
		}
		rhs, err := specializeExpr(xT.Y, lvs)
		if err != nil {
			return nil, err
		}
		return &ir.BinaryExpr{Op: xT.Op, X: lhs, Y: rhs}, nil
	case *ir.NegExpr:
		operand, err := specializeExpr(xT.X, lvs)
		if err != nil {
			return nil, err
		}
		return &ir.NegExpr{X: operand}, nil
	case *ir.Call:
		args := make([]ir.Expr, len(xT.Args))
		for i, arg := range xT.Args {
			var err error
			if args[i], err = specializeExpr(arg, lvs); err != nil {
				return nil, err
			}
		}
		return &ir.Call{Func: xT.Func, Args: args}, nil
	case *ir.VarExpr, *ir.Literal, *ir.FieldRead, *ir.TensorRead, *ir.Load:
		return x, nil
	}
	return nil, fmterr.Internalf("expression %s of type %T not supported in index expressions", ir.String(x), x)
}

// reduction accumulates the value of a statement across reduction loops.
type reduction struct {
	init       ir.Stmt
	accumulate ir.Stmt
	// writeBack copies the accumulator to the target of the statement.
	// It is nil when the target is the accumulator.
	writeBack ir.Stmt
}

func accumulate(acc *ir.Var, value ir.Expr) *ir.AssignStmt {
	return &ir.AssignStmt{
		Var:   acc,
		Value: &ir.BinaryExpr{Op: ir.Add, X: &ir.VarExpr{Var: acc}, Y: value},
	}
}

// reduceOver rewrites a statement to add its value to an accumulator.
func (l *indexLowerer) reduceOver(stmt ir.Stmt, typ *ir.TensorType) *reduction {
	zero := &ir.Literal{DType: typ.Component, Value: 0}
	switch stmtT := stmt.(type) {
	case *ir.AssignStmt:
		return &reduction{
			init:       &ir.AssignStmt{Var: stmtT.Var, Value: zero},
			accumulate: accumulate(stmtT.Var, stmtT.Value),
		}
	case *ir.TensorWrite:
		tmp := ir.NewVar(l.names.Name(tmpName(stmtT)), typ.ElementOf())
		return &reduction{
			init:       &ir.AssignStmt{Var: tmp, Value: zero},
			accumulate: accumulate(tmp, stmtT.Value),
			writeBack: &ir.TensorWrite{
				Tensor:  stmtT.Tensor,
				Indices: stmtT.Indices,
				Value:   &ir.VarExpr{Var: tmp},
			},
		}
	}
	return nil
}

// tmpName concatenates the names of the variables referenced by the target of a write.
func tmpName(write *ir.TensorWrite) string {
	var b strings.Builder
	for _, x := range append([]ir.Expr{write.Tensor}, write.Indices...) {
		ir.Walk(x, func(n ir.Node) bool {
			if ref, ok := n.(*ir.VarExpr); ok {
				b.WriteString(ref.Var.Name)
			}
			return true
		})
	}
	return b.String()
}

// wrap surrounds the outermost reduction loop with the initialization
// and the write-back of the accumulator.
func (r *reduction) wrap(loop ir.Stmt) ir.Stmt {
	stmts := []ir.Stmt{r.init, loop}
	if r.writeBack != nil {
		stmts = append(stmts, r.writeBack)
	}
	return &ir.Block{Stmts: stmts}
}

// nest builds a loop nest from the innermost loop to the outermost loop.
type nest struct {
	lvs            *sig.LoopVars
	red            *reduction
	firstReduction int
}

func (n *nest) build(steps []sig.Step, inner ir.Stmt) (ir.Stmt, error) {
	if len(steps) == 0 {
		return inner, nil
	}
	last := len(steps) - 1
	loop, err := n.loop(steps[last], inner)
	if err != nil {
		return nil, err
	}
	if last == n.firstReduction {
		loop = n.red.wrap(loop)
	}
	return n.build(steps[:last], loop)
}

func (n *nest) loop(step sig.Step, body ir.Stmt) (ir.Stmt, error) {
	lv, ok := n.lvs.Var(step.Vertex.IndexVar)
	if !ok {
		return nil, fmterr.Internalf("no loop variable for index variable %s", step.Vertex.IndexVar.Name)
	}
	if step.Previous == nil {
		return &ir.For{Var: lv, Domain: step.Vertex.IndexVar.Domain, Body: body}, nil
	}
	source, ok := n.lvs.Var(step.From.IndexVar)
	if !ok {
		return nil, fmterr.Internalf("no loop variable for index variable %s", step.From.IndexVar.Name)
	}
	return &ir.For{
		Var: lv,
		Domain: &ir.NeighborDomain{
			Path:           step.Previous.Path,
			SourceEndpoint: step.Previous.EndpointOf(step.From),
			Source:         source,
		},
		Body: body,
	}, nil
}
